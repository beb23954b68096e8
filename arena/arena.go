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

// Package arena lays out a single OS-provided region as one interior free
// block bracketed by two fenceposts. It knows nothing about the free
// list; the caller is responsible for publishing Head onto one.
package arena

import (
	"fmt"
	"unsafe"

	"github.com/heaptag/heaptag/internal/blocktag"
	"github.com/heaptag/heaptag/osmem"
)

// DefaultSize is the default usable (interior) size of a new arena: 2MiB,
// per the allocator design.
const DefaultSize = 2 << 20

// Arena is one address-contiguous region obtained from an osmem.Provider,
// carrying a left fencepost, one interior block, and a right fencepost.
type Arena struct {
	// base anchors the backing store so the Go garbage collector keeps it
	// alive for as long as this Arena (and therefore any block headers
	// pointing into it) is reachable.
	base []byte

	Left  *blocktag.Footer // left fencepost: size=0, status=Used
	Head  *blocktag.Header // the interior block, as it was at creation time
	Right *blocktag.Header // right fencepost: size=0, status=Used
}

// New obtains size+overhead bytes from p, installs fenceposts at both
// ends, and returns an Arena whose Head is a single free block spanning
// the interior. size is the usable interior size, not counting the two
// fencepost words or the interior block's own header/footer.
func New(p osmem.Provider, size uintptr) (*Arena, error) {
	if size == 0 {
		return nil, fmt.Errorf("arena: size must be > 0")
	}

	overhead := 2*blocktag.HeaderSize + 2*blocktag.FooterSize
	total := size + overhead

	mem := p.Acquire(int(total))
	if uintptr(len(mem)) < total {
		return nil, fmt.Errorf("arena: provider returned %d bytes, want >= %d", len(mem), total)
	}
	mem = mem[:total]

	base := unsafe.Pointer(&mem[0])

	left := blocktag.FooterAt(base)
	blocktag.WriteFooter(left, 0, blocktag.Used)

	head := blocktag.HeaderAt(unsafe.Add(base, blocktag.FooterSize))
	interiorSize := size + blocktag.HeaderSize + blocktag.FooterSize
	blocktag.WriteHeader(head, interiorSize, blocktag.Free)

	foot := blocktag.FooterOf(head)
	blocktag.WriteFooter(foot, interiorSize, blocktag.Free)

	right := blocktag.HeaderFollowing(foot)
	blocktag.WriteHeader(right, 0, blocktag.Used)

	return &Arena{base: mem, Left: left, Head: head, Right: right}, nil
}

// Contains reports whether addr lies within this arena's backing store,
// fenceposts included.
func (a *Arena) Contains(addr unsafe.Pointer) bool {
	start := uintptr(unsafe.Pointer(&a.base[0]))
	end := start + uintptr(len(a.base))
	p := uintptr(addr)
	return p >= start && p < end
}
