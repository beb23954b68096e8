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

package heaptag

import (
	"fmt"

	"github.com/heaptag/heaptag/arena"
	"github.com/heaptag/heaptag/freelist"
	"github.com/heaptag/heaptag/internal/blocktag"
)

// allocate runs the first-fit allocate path for a pre-rounded total size T.
// Callers hold h.mu. It never returns nil: if no existing arena can serve
// the request, a new arena is created and the search restarts, per the
// design's "at most one retry needed per request" guarantee (a fresh
// arena is always larger than any individually serviceable request).
func (h *Heap) allocate(total uintptr) *blocktag.Header {
	for {
		if hdr, ok := h.firstFit(total); ok {
			return hdr
		}
		if err := h.growLocked(); err != nil {
			panic(fmt.Errorf("heaptag: %w", err))
		}
	}
}

// firstFit searches the free list for the first block whose size is >=
// total, splitting it if the residual would still satisfy the minimum
// block size, consuming it whole otherwise.
func (h *Heap) firstFit(total uintptr) (*blocktag.Header, bool) {
	sentinel := h.list.Sentinel()
	for b := sentinel.Next; b != sentinel; b = b.Next {
		if b.Size < total {
			continue
		}

		residual := b.Size - total
		if residual >= blockOverhead+MinPayload {
			return h.split(b, total, residual), true
		}
		return h.consumeWhole(b), true
	}
	return nil, false
}

// split carves the low `total` bytes of b into a used block, turns the
// remaining `residual` bytes into a new free block, and substitutes it for
// b in the free list (same list position, no search needed).
func (h *Heap) split(b *blocktag.Header, total, residual uintptr) *blocktag.Header {
	blocktag.WriteHeader(b, total, blocktag.Used)
	blocktag.WriteFooter(blocktag.FooterOf(b), total, blocktag.Used)

	newFree := blocktag.HeaderFollowing(blocktag.FooterOf(b))
	blocktag.WriteHeader(newFree, residual, blocktag.Free)
	blocktag.WriteFooter(blocktag.FooterOf(newFree), residual, blocktag.Free)

	freelist.Replace(b, newFree)
	return b
}

// consumeWhole hands out the entire block b, too small to split further.
func (h *Heap) consumeWhole(b *blocktag.Header) *blocktag.Header {
	blocktag.WriteHeader(b, b.Size, blocktag.Used)
	blocktag.WriteFooter(blocktag.FooterOf(b), b.Size, blocktag.Used)
	h.list.Remove(b)
	return b
}

// growLocked requests a new arena from the OS memory provider, installs
// it, and publishes its interior block onto the free list in address
// order. Callers hold h.mu.
func (h *Heap) growLocked() error {
	a, err := arena.New(h.provider, h.arenaSz)
	if err != nil {
		return err
	}
	h.arenas = append(h.arenas, a)
	h.heapBytes += h.arenaSz + 2*blocktag.HeaderSize + 2*blocktag.FooterSize
	h.list.InsertOrdered(a.Head)
	return nil
}
