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
	"github.com/heaptag/heaptag/freelist"
	"github.com/heaptag/heaptag/internal/blocktag"
)

// free runs the free path for block m, which must be non-nil and
// allocator-owned — the nil check lives entirely at the public surface
// (Heap.Free), matching the design's note that the reference free path
// never defensively checks for a null payload pointer. Coalesces with
// either or both neighbors using the non-recursive three-way-merge
// formulation from the design (no implicit recursion/stack discipline).
func (h *Heap) free(m *blocktag.Header) {
	leftFoot := blocktag.FooterPreceding(m)
	rightHead := blocktag.HeaderFollowing(blocktag.FooterOf(m))

	leftFree := leftFoot.Status == blocktag.Free
	rightFree := rightHead.Status == blocktag.Free

	switch {
	case !leftFree && !rightFree:
		blocktag.WriteHeader(m, m.Size, blocktag.Free)
		blocktag.WriteFooter(blocktag.FooterOf(m), m.Size, blocktag.Free)
		h.list.InsertOrdered(m)

	case leftFree && !rightFree:
		leftHead := blocktag.HeaderOfLeftNeighbor(m, leftFoot)
		newSize := leftHead.Size + m.Size
		blocktag.WriteHeader(leftHead, newSize, blocktag.Free)
		blocktag.WriteFooter(blocktag.FooterOf(m), newSize, blocktag.Free)
		// leftHead keeps its existing list position; m never joins the list.

	case !leftFree && rightFree:
		newSize := m.Size + rightHead.Size
		blocktag.WriteHeader(m, newSize, blocktag.Free)
		blocktag.WriteFooter(blocktag.FooterOf(rightHead), newSize, blocktag.Free)
		freelist.Replace(rightHead, m)

	default: // both neighbors free: three-way merge
		leftHead := blocktag.HeaderOfLeftNeighbor(m, leftFoot)
		h.list.Remove(rightHead)
		newSize := leftHead.Size + m.Size + rightHead.Size
		blocktag.WriteHeader(leftHead, newSize, blocktag.Free)
		blocktag.WriteFooter(blocktag.FooterOf(rightHead), newSize, blocktag.Free)
		// leftHead keeps its existing list position.
	}
}
