/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package taskpool runs small, recurring background closures — heap
// diagnostics samplers — without leaking one goroutine per Heap. It is a
// deliberately narrowed worker pool: unlike a general-purpose task pool it
// has no per-task context, no pluggable panic handler, and no worker-age
// ticker, since every task it ever runs here is "wake up, read Stats(),
// go back to sleep".
package taskpool

import (
	"log"
	"runtime/debug"
	"sync/atomic"
)

const (
	maxIdleWorkers = 64
	taskChanBuffer = 256
)

type pool struct {
	workers int32
	tasks   chan func()
}

var shared = newPool()

func newPool() *pool {
	p := &pool{tasks: make(chan func(), taskChanBuffer)}
	return p
}

// Go runs f on a pooled worker goroutine. If every worker is busy and the
// task queue is full, it falls back to a bare `go f()` rather than
// blocking the caller.
func Go(f func()) {
	shared.go_(f)
}

func (p *pool) go_(f func()) {
	select {
	case p.tasks <- f:
	default:
		go p.runTask(f)
		return
	}
	if atomic.LoadInt32(&p.workers) == 0 || len(p.tasks) > 0 {
		go p.spawnWorker()
	}
}

func (p *pool) spawnWorker() {
	if atomic.AddInt32(&p.workers, 1) > maxIdleWorkers {
		atomic.AddInt32(&p.workers, -1)
		return
	}
	defer atomic.AddInt32(&p.workers, -1)

	for f := range p.tasks {
		p.runTask(f)
	}
}

func (p *pool) runTask(f func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("taskpool: panic in background task: %v: %s", r, debug.Stack())
		}
	}()
	f()
}
