/*
 * Copyright 2024 CloudWeGo Authors
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

//go:build linux || darwin
// +build linux darwin

package osmem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Mmap is a Provider backed directly by an anonymous, private mmap(2)
// mapping — the closest Go-level analogue of the original allocator's
// sbrk(2)-based get_memory_from_os. Unlike Heap, regions it returns lie
// outside the Go heap, so the garbage collector never scans them: the
// *blocktag.Header free-list links the allocator writes into arena memory
// are invisible to it.
type Mmap struct{}

// Acquire maps n fresh, zero-filled bytes with PROT_READ|PROT_WRITE.
// It panics if the kernel refuses the mapping, matching the allocator's
// "OS exhaustion is unrecoverable" error design — there is no recoverable
// path to hand a failure back through.
func (Mmap) Acquire(n int) []byte {
	b, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		panic(fmt.Errorf("osmem: mmap %d bytes: %w", n, err))
	}
	return b
}
