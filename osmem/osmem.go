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

// Package osmem is the external OS-memory-acquisition collaborator named
// but not re-specified by the allocator design: "extend the process's
// address space by N bytes and return the start of the new region."
// Regions handed back by a Provider are not required to abut earlier ones.
package osmem

import "github.com/bytedance/gopkg/lang/dirtmake"

// Provider obtains fresh, address-contiguous regions of process memory.
// Implementations are assumed to always succeed for the sizes the
// allocator requests; failure is surfaced as a short (or nil) return and
// treated as unrecoverable by callers, per the allocator's error design.
type Provider interface {
	// Acquire returns a new region of at least n bytes. The region must
	// not overlap any region previously returned by this Provider.
	Acquire(n int) []byte
}

// Heap is a Provider backed by the Go heap rather than a raw OS mapping.
// It is the default Provider: portable, works under the race detector,
// and needs no build tags. Memory is deliberately left uninitialized
// (via dirtmake.Byte) since the arena manager immediately overwrites
// every byte it cares about with fencepost and free-block metadata; the
// Go runtime's usual zero-fill would be wasted work on a 2MiB region.
type Heap struct{}

// Acquire returns n freshly (but not necessarily zeroed) allocated bytes.
func (Heap) Acquire(n int) []byte {
	return dirtmake.Byte(n)
}
