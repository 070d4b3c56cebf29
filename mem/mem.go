// Package mem implements the physical frame allocator: a bump allocator
// over [start, end) backed by a free list of recycled frames, the leaf of
// the dependency order in spec.md §2. Grounded on biscuit's mem.Physmem_t
// (mem/mem.go), stripped of biscuit's per-CPU free lists and pmap-specific
// pools — this kernel is single-CPU (spec.md §1 Non-goals: SMP) and has no
// pinned "pmap" pool distinct from ordinary frames.
package mem

import (
	"fmt"
	"sync"

	"github.com/jason-hue/rvos/config"
)

// Ppn_t is a physical page number: a physical address shifted right by
// PGSHIFT.
type Ppn_t uint64

// Pg_t is the content of one physical page, addressable as bytes.
type Pg_t [config.PGSIZE]byte

// Tracker scopes ownership of a single physical frame: constructing one
// via FrameAllocator.Alloc zeroes the frame, and Free returns it to the
// allocator. A frame is owned by exactly one Tracker at a time; freeing a
// Tracker whose frame is still referenced by a live page-table entry is a
// caller bug the allocator cannot detect (documented in spec.md §3).
type Tracker struct {
	Ppn   Ppn_t
	alloc *FrameAllocator
	freed bool
}

// Bytes returns the frame's contents as a byte slice, for callers that
// want to read or write it directly (ELF segment loading, zeroing a
// directory cluster, ...).
func (t *Tracker) Bytes() []byte {
	return t.alloc.page(t.Ppn)[:]
}

// Free returns the frame to its allocator. Calling Free twice panics: a
// double-free is exactly the bug class the allocator's range/membership
// checks in Dealloc exist to catch.
func (t *Tracker) Free() {
	if t.freed {
		panic("mem: double free of frame tracker")
	}
	t.freed = true
	t.alloc.Dealloc(t.Ppn)
}

// FrameAllocator is a bump-plus-freelist allocator over a contiguous PPN
// range [start, end). Alloc pops the free list if non-empty, else
// post-increments the bump watermark current. Dealloc rejects frames
// outside [start,current) or already free (spec.md §4.1: "diagnostic;
// fatal in debug"), then lowers the watermark if the frame sits just
// below it, else pushes it onto the free list.
type FrameAllocator struct {
	mu      sync.Mutex
	start   Ppn_t
	end     Ppn_t
	current Ppn_t
	free    map[Ppn_t]bool
	pages   map[Ppn_t]*Pg_t
}

// FrameAllocatorGlobal is the kernel's single global physical-frame pool,
// mirroring biscuit's package-level `var Physmem = &Physmem_t{}`.
var FrameAllocatorGlobal *FrameAllocator

// InitFrameAllocator creates the global allocator spanning the frames
// between the first frame after `ekernel` and MEMORY_END, both given as
// page numbers. Call exactly once during boot.
func InitFrameAllocator(startPpn, endPpn Ppn_t) {
	FrameAllocatorGlobal = &FrameAllocator{
		start:   startPpn,
		end:     endPpn,
		current: startPpn,
		free:    make(map[Ppn_t]bool),
		pages:   make(map[Ppn_t]*Pg_t),
	}
	fmt.Printf("mem: frame pool [%#x, %#x), %d frames\n", startPpn, endPpn, endPpn-startPpn)
}

func (fa *FrameAllocator) page(ppn Ppn_t) *Pg_t {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	pg, ok := fa.pages[ppn]
	if !ok {
		pg = &Pg_t{}
		fa.pages[ppn] = pg
	}
	return pg
}

// Alloc hands out one zeroed frame, or reports exhaustion.
func (fa *FrameAllocator) Alloc() (*Tracker, bool) {
	fa.mu.Lock()
	var ppn Ppn_t
	ok := false
	for cand := range fa.free {
		ppn = cand
		ok = true
		break
	}
	if ok {
		delete(fa.free, ppn)
	} else if fa.current < fa.end {
		ppn = fa.current
		fa.current++
		ok = true
	}
	fa.mu.Unlock()
	if !ok {
		return nil, false
	}
	pg := fa.page(ppn)
	*pg = Pg_t{}
	return &Tracker{Ppn: ppn, alloc: fa}, true
}

// Dealloc returns ppn to the pool: the frame at current-1 lowers the
// watermark, any other goes on the free list. It panics on a frame outside the
// allocated range or already on the free list — spec.md calls this
// "diagnostic; fatal in debug", and this kernel has no non-debug build.
func (fa *FrameAllocator) Dealloc(ppn Ppn_t) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if ppn < fa.start || ppn >= fa.current {
		panic(fmt.Sprintf("mem: dealloc of out-of-range frame %#x", ppn))
	}
	if fa.free[ppn] {
		panic(fmt.Sprintf("mem: double dealloc of frame %#x", ppn))
	}
	if ppn == fa.current-1 {
		// The most recent bump allocation lowers the watermark instead, so
		// an alloc followed by its free leaves the allocator as it was.
		fa.current--
		return
	}
	fa.free[ppn] = true
}

// Watermark reports the current bump pointer and free-list size, used by
// tests that assert no frames leak across fork+exec (spec.md §8 boundary
// behaviors).
func (fa *FrameAllocator) Watermark() (current Ppn_t, freelisted int) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return fa.current, len(fa.free)
}
