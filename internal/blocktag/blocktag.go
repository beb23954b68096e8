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

// Package blocktag is the audited pointer-arithmetic layer for the
// boundary-tag allocator: it is the only place in this module that
// reinterprets arena bytes as metadata. Everything above it (freelist,
// arena, heaptag) talks to arena memory exclusively through the functions
// here.
package blocktag

import "unsafe"

// Status is the allocation state of a block, stored identically in its
// header and footer.
type Status uint32

const (
	// Free marks a block sitting on the free list.
	Free Status = iota
	// Used marks a block handed out to a caller.
	Used
	// Sentinel marks the static free-list anchor. Never written to arena
	// memory; it lives only in the freelist package's sentinel value.
	Sentinel
)

func (s Status) String() string {
	switch s {
	case Free:
		return "FREE"
	case Used:
		return "USED"
	case Sentinel:
		return "SENTINEL"
	default:
		return "UNKNOWN"
	}
}

// Header sits at the low end of a block. Next/Prev are only meaningful
// while the block is free or is the list sentinel; for a used block those
// bytes belong to the caller's payload and must never be read or written.
type Header struct {
	Size   uintptr
	Status Status
	Next   *Header
	Prev   *Header
}

// Footer sits at the high end of a block and must always agree with its
// header's Size and Status.
type Footer struct {
	Size   uintptr
	Status Status
}

const (
	// HeaderSize is the number of bytes a Header occupies in arena memory.
	HeaderSize = unsafe.Sizeof(Header{})
	// FooterSize is the number of bytes a Footer occupies in arena memory.
	FooterSize = unsafe.Sizeof(Footer{})
)

// HeaderAt reinterprets the bytes at p as a Header.
func HeaderAt(p unsafe.Pointer) *Header {
	return (*Header)(p)
}

// FooterAt reinterprets the bytes at p as a Footer.
func FooterAt(p unsafe.Pointer) *Footer {
	return (*Footer)(p)
}

// WriteHeader stamps size/status into h, leaving Next/Prev untouched; callers
// that need list membership go through the freelist package.
func WriteHeader(h *Header, size uintptr, status Status) {
	h.Size = size
	h.Status = status
}

// WriteFooter stamps size/status into f.
func WriteFooter(f *Footer, size uintptr, status Status) {
	f.Size = size
	f.Status = status
}

// FooterOf returns the footer belonging to the block whose header is h,
// derived from h.Size. Valid only once h.Size has been written.
func FooterOf(h *Header) *Footer {
	return FooterAt(unsafe.Add(unsafe.Pointer(h), h.Size-FooterSize))
}

// FooterPreceding returns the footer immediately before h — either the
// footer of h's left neighbor, or a left fencepost.
func FooterPreceding(h *Header) *Footer {
	return FooterAt(unsafe.Add(unsafe.Pointer(h), -int(FooterSize)))
}

// HeaderFollowing returns the header immediately after f — either the
// header of f's block's right neighbor, or a right fencepost.
func HeaderFollowing(f *Footer) *Header {
	return HeaderAt(unsafe.Add(unsafe.Pointer(f), FooterSize))
}

// HeaderOfLeftNeighbor returns the header of the block whose footer is
// leftFoot, i.e. the block immediately to the left of m. leftFoot.Size must
// already hold that block's full size.
func HeaderOfLeftNeighbor(m *Header, leftFoot *Footer) *Header {
	return HeaderAt(unsafe.Add(unsafe.Pointer(m), -int(leftFoot.Size)))
}

// PayloadOf returns the address handed to the caller for the block h.
func PayloadOf(h *Header) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(h), HeaderSize)
}

// HeaderOfPayload recovers the header of the block that owns payload p.
func HeaderOfPayload(p unsafe.Pointer) *Header {
	return HeaderAt(unsafe.Add(p, -int(HeaderSize)))
}

// Bytes reinterprets the block's full size (header..footer inclusive) as a
// byte slice anchored at h, for bulk copies and bound-checked
// debugging. offset/frontGC safety relies on the caller holding a reference
// to the backing arena for the lifetime of the returned slice.
func Bytes(h *Header) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(h)), int(h.Size))
}
