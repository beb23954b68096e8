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

// Package freelist is the circular doubly-linked free list threaded
// through block headers. The list does not own its members: the
// backing arena memory does, so links are modeled as raw pointers, not
// owning references.
package freelist

import (
	"unsafe"

	"github.com/heaptag/heaptag/internal/blocktag"
)

// List is a free list anchored by a static sentinel header. An empty list
// is the sentinel linked to itself. Members are kept in ascending order
// of header address.
type List struct {
	sentinel blocktag.Header
}

// New returns an empty free list.
func New() *List {
	l := &List{}
	l.sentinel.Status = blocktag.Sentinel
	l.sentinel.Next = &l.sentinel
	l.sentinel.Prev = &l.sentinel
	return l
}

// Sentinel returns the list's anchor node. It is never free, never
// returned by allocation, and is distinguished by Status == Sentinel.
func (l *List) Sentinel() *blocktag.Header {
	return &l.sentinel
}

// Empty reports whether the list currently has no free blocks.
func (l *List) Empty() bool {
	return l.sentinel.Next == &l.sentinel
}

// Remove detaches b from the list in O(1) by splicing its neighbors
// together. b itself is left with dangling Next/Prev.
func (l *List) Remove(b *blocktag.Header) {
	b.Prev.Next = b.Next
	b.Next.Prev = b.Prev
}

// Replace substitutes new for old in-place, so new inherits old's list
// position in O(1). Used by the free path when coalescing with the right
// neighbor: the right neighbor leaves the list and the merged block enters
// at the same position, preserving address order without a search.
func Replace(old, newBlock *blocktag.Header) {
	newBlock.Next = old.Next
	newBlock.Prev = old.Prev
	old.Prev.Next = newBlock
	old.Next.Prev = newBlock
}

// InsertOrdered walks forward from the sentinel until it finds the first
// free block whose header address is greater than b's, and splices b in
// before it. If no such block exists, b is appended just before the
// sentinel. O(k) in list length.
//
// The walk is correct even when a newly created arena's address range
// falls between two already-registered arenas (the OS provider is not
// guaranteed to serve monotonically increasing addresses): every
// comparison is a plain address comparison against whatever the list
// currently holds, so an out-of-order arena still lands in the right slot.
func (l *List) InsertOrdered(b *blocktag.Header) {
	crawler := l.sentinel.Next
	for crawler != &l.sentinel {
		if addr(crawler) > addr(b) {
			b.Prev = crawler.Prev
			b.Next = crawler
			crawler.Prev.Next = b
			crawler.Prev = b
			return
		}
		crawler = crawler.Next
	}

	// Reached the end: append before the sentinel.
	b.Prev = l.sentinel.Prev
	b.Next = &l.sentinel
	l.sentinel.Prev.Next = b
	l.sentinel.Prev = b
}

// Each calls f on every free block in link order (ascending address),
// stopping early if f returns false.
func (l *List) Each(f func(b *blocktag.Header) bool) {
	for cur := l.sentinel.Next; cur != &l.sentinel; cur = cur.Next {
		if !f(cur) {
			return
		}
	}
}

func addr(h *blocktag.Header) uintptr {
	return uintptr(unsafe.Pointer(h))
}
