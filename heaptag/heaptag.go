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

// Package heaptag is a boundary-tag dynamic memory allocator: first-fit
// search over an address-ordered free list, splitting on allocate,
// bidirectional coalescing on free, and demand-driven arena growth.
//
// A Heap serializes its public operations behind a single mutex, the Go
// analogue of the pthread_mutex_t the design was originally specified
// against. Most callers want the package-level Alloc/Free/Realloc/
// ZeroAlloc/SizeOf, which forward to a lazily-initialized Default Heap.
package heaptag

import (
	"fmt"
	"os"
	"sync"
	"time"
	"unsafe"

	"github.com/heaptag/heaptag/arena"
	"github.com/heaptag/heaptag/freelist"
	"github.com/heaptag/heaptag/internal/blocktag"
	"github.com/heaptag/heaptag/internal/hack"
	"github.com/heaptag/heaptag/internal/taskpool"
	"github.com/heaptag/heaptag/osmem"
)

const (
	// Align is the allocation size quantum: every block's size is a
	// multiple of this many bytes.
	Align = 8

	// MinPayload is the smallest payload size a caller can request;
	// smaller requests are rounded up silently.
	MinPayload = 8

	// ArenaSize is the default usable size of each arena requested from
	// the OS memory provider.
	ArenaSize = arena.DefaultSize
)

var blockOverhead = blocktag.HeaderSize + blocktag.FooterSize

// sliceHeader mirrors the runtime's slice layout, the same trick
// cache/mempool.go uses to reach a []byte's Data pointer directly. A
// plain p[0] doesn't work here: Alloc(0) legitimately returns a
// zero-length-but-non-nil slice (a real, freeable block with no payload
// bytes), and indexing p[0] on that panics.
type sliceHeader struct {
	Data unsafe.Pointer
	Len  int
	Cap  int
}

// dataPointer returns p's backing pointer regardless of its length, or
// nil if p itself is the nil slice.
func dataPointer(p []byte) unsafe.Pointer {
	return (*sliceHeader)(unsafe.Pointer(&p)).Data
}

// Stats holds the exit-time / on-demand counters the design calls for:
// total bytes requested from the OS provider, and a call count per public
// operation.
type Stats struct {
	HeapBytes    uintptr
	AllocCalls   int64
	FreeCalls    int64
	ReallocCalls int64
	ZeroCalls    int64
}

// Heap is one independent allocator instance: its own arenas, its own free
// list, its own lock. Most programs only need Default(); constructing a
// Heap directly is for tests and for callers that want isolation from the
// package-level singleton.
type Heap struct {
	mu sync.Mutex

	provider osmem.Provider
	arenaSz  uintptr

	arenas []*arena.Arena
	list   *freelist.List

	verbose bool

	heapBytes    uintptr
	allocCalls   int64
	freeCalls    int64
	reallocCalls int64
	zeroCalls    int64

	once sync.Once
}

// Option configures a Heap constructed with New.
type Option func(*Heap)

// WithProvider overrides the OS memory provider. Default is osmem.Heap{};
// osmem.Mmap{} is available for callers who want a real anonymous mapping
// rather than Go-heap-backed arena memory.
func WithProvider(p osmem.Provider) Option {
	return func(h *Heap) { h.provider = p }
}

// WithArenaSize overrides the interior size requested for each arena.
// Mostly useful in tests, which want small arenas to exercise growth and
// boundary conditions cheaply.
func WithArenaSize(size uintptr) Option {
	return func(h *Heap) { h.arenaSz = size }
}

// New constructs a Heap. Its first arena is created lazily, on the first
// call to Alloc/ZeroAlloc/Realloc/Free, the same "initialize on first use"
// discipline the design specifies for the allocator as a whole.
func New(opts ...Option) *Heap {
	h := &Heap{
		provider: osmem.Heap{},
		arenaSz:  ArenaSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Heap) init() {
	h.list = freelist.New()
	h.verbose = os.Getenv("MALLOCVERBOSE") != "NO"
	if err := h.growLocked(); err != nil {
		panic(fmt.Errorf("heaptag: %w", err))
	}
}

func (h *Heap) ensureInit() {
	h.once.Do(h.init)
}

var (
	defaultHeap     *Heap
	defaultHeapOnce sync.Once
)

// Default returns the package-level singleton Heap, constructing it on
// first use.
func Default() *Heap {
	defaultHeapOnce.Do(func() {
		defaultHeap = New()
	})
	return defaultHeap
}

// Alloc forwards to Default().Alloc.
func Alloc(n int) []byte { return Default().Alloc(n) }

// Free forwards to Default().Free.
func Free(p []byte) { Default().Free(p) }

// Realloc forwards to Default().Realloc.
func Realloc(p []byte, n int) []byte { return Default().Realloc(p, n) }

// ZeroAlloc forwards to Default().ZeroAlloc.
func ZeroAlloc(count, size int) []byte { return Default().ZeroAlloc(count, size) }

// SizeOf forwards to Default().SizeOf.
func SizeOf(p []byte) int { return Default().SizeOf(p) }

// Alloc allocates n bytes and returns a payload slice of exactly that
// length backed by allocator-owned memory. It never returns nil: a
// request the current arenas cannot satisfy grows the heap with a new
// arena and retries.
func (h *Heap) Alloc(n int) []byte {
	h.mu.Lock()
	h.ensureInit()
	h.allocCalls++
	hdr := h.allocate(roundedTotal(n))
	payload := payloadSlice(hdr, n)
	h.mu.Unlock()
	return payload
}

// Free returns p to the heap for reuse, coalescing with any free
// neighbors. A nil p is a no-op and never reaches the internal free
// path. A zero-length p from Alloc(0) is not nil and is freed normally:
// len(p) alone can't stand in for "no block here", since Alloc(0)
// legitimately hands back a real, freeable zero-length block.
func (h *Heap) Free(p []byte) {
	h.mu.Lock()
	h.ensureInit()
	h.freeCalls++
	if ptr := dataPointer(p); ptr != nil {
		hdr := blocktag.HeaderOfPayload(ptr)
		h.free(hdr)
	}
	h.mu.Unlock()
}

// Realloc allocates a fresh block of n bytes, copies
// min(len(p), n)-worth of payload from p into it, and frees p. A nil p
// behaves as Alloc(n). The payload copy happens with the lock released —
// callers must not concurrently free or realloc p while this call is in
// flight. Freeing the old block goes through the unexported h.free
// directly rather than h.Free, so a single Realloc call only ever bumps
// reallocCalls, not freeCalls too.
func (h *Heap) Realloc(p []byte, n int) []byte {
	h.mu.Lock()
	h.ensureInit()
	h.reallocCalls++
	hdr := h.allocate(roundedTotal(n))
	h.mu.Unlock()

	newPayload := payloadSlice(hdr, n)
	if ptr := dataPointer(p); ptr != nil {
		copy(newPayload, p)
		h.mu.Lock()
		h.free(blocktag.HeaderOfPayload(ptr))
		h.mu.Unlock()
	}
	return newPayload
}

// ZeroAlloc allocates count*size bytes and returns them zero-filled.
// Overflow of count*size is the caller's concern, per the allocator's
// error design.
func (h *Heap) ZeroAlloc(count, size int) []byte {
	n := count * size
	h.mu.Lock()
	h.ensureInit()
	h.zeroCalls++
	hdr := h.allocate(roundedTotal(n))
	payload := payloadSlice(hdr, n)
	h.mu.Unlock()

	zeroFill(payload)
	return payload
}

// SizeOf returns the full block size (including header and footer) of the
// block containing p.
func (h *Heap) SizeOf(p []byte) int {
	ptr := dataPointer(p)
	if ptr == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	hdr := blocktag.HeaderOfPayload(ptr)
	return int(hdr.Size)
}

// Stats returns a snapshot of heap-wide counters.
func (h *Heap) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		HeapBytes:    h.heapBytes,
		AllocCalls:   h.allocCalls,
		FreeCalls:    h.freeCalls,
		ReallocCalls: h.reallocCalls,
		ZeroCalls:    h.zeroCalls,
	}
}

// PrintStatsAtExit prints the same report the original C allocator printed
// from an atexit(3) hook. Go has no portable process-exit hook a library
// can register on its own, so callers defer this from main when they want
// the C allocator's behavior; it respects MALLOCVERBOSE the same way.
func (h *Heap) PrintStatsAtExit() {
	h.mu.Lock()
	verbose := h.verbose
	s := Stats{
		HeapBytes:    h.heapBytes,
		AllocCalls:   h.allocCalls,
		FreeCalls:    h.freeCalls,
		ReallocCalls: h.reallocCalls,
		ZeroCalls:    h.zeroCalls,
	}
	h.mu.Unlock()

	if !verbose {
		return
	}
	fmt.Printf("\n-------------------\n")
	fmt.Printf("HeapSize:\t%d bytes\n", s.HeapBytes)
	fmt.Printf("# mallocs:\t%d\n", s.AllocCalls)
	fmt.Printf("# reallocs:\t%d\n", s.ReallocCalls)
	fmt.Printf("# zerallocs:\t%d\n", s.ZeroCalls)
	fmt.Printf("# frees:\t%d\n", s.FreeCalls)
	fmt.Printf("\n-------------------\n")
}

// StartStatsSampler launches a pooled background goroutine (see
// internal/taskpool) that reads Stats() every interval d and passes it to
// report. It returns a stop func; calling stop is the only way the
// sampler goroutine exits. This is a supplemented diagnostic beyond
// spec — the allocator itself never starts one.
func (h *Heap) StartStatsSampler(d time.Duration, report func(Stats)) (stop func()) {
	done := make(chan struct{})
	taskpool.Go(func() {
		t := time.NewTicker(d)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				report(h.Stats())
			}
		}
	})
	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

// DumpFreeList renders the free list as "[offset:<o>,size:<s>]->..." where
// offset is the signed byte distance from the start of the first arena's
// interior block to each free-list member's header.
func (h *Heap) DumpFreeList() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dumpFreeListLocked()
}

func (h *Heap) dumpFreeListLocked() string {
	if len(h.arenas) == 0 {
		return ""
	}
	base := uintptr(unsafe.Pointer(h.arenas[0].Head))

	buf := make([]byte, 0, 64)
	first := true
	h.list.Each(func(b *blocktag.Header) bool {
		if !first {
			buf = append(buf, "->"...)
		}
		first = false
		offset := int64(uintptr(unsafe.Pointer(b))) - int64(base)
		buf = append(buf, fmt.Sprintf("[offset:%d,size:%d]", offset, b.Size)...)
		return true
	})
	return hack.ByteSliceToString(buf)
}

// roundedTotal computes T from spec §4.3: max(n, MinPayload) rounded up,
// plus header/footer, aligned to Align.
func roundedTotal(n int) uintptr {
	s := uintptr(n)
	if s < MinPayload {
		s = MinPayload
	}
	total := s + blockOverhead
	return (total + Align - 1) &^ (Align - 1)
}

// payloadSlice builds the payload slice a caller sees for block h. n may be
// 0: unsafe.Slice with a non-nil pointer and length 0 still carries that
// pointer as its Data field, so the resulting slice is freeable even though
// nothing can be indexed through it.
func payloadSlice(h *blocktag.Header, n int) []byte {
	if n < 0 {
		n = 0
	}
	return unsafe.Slice((*byte)(blocktag.PayloadOf(h)), n)
}

func zeroFill(p []byte) {
	for i := range p {
		p[i] = 0
	}
}
