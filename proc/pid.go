package proc

import "sync"

// PidAllocator hands out PIDs from a monotonic counter with a recycled
// free-list, grounded on original_source/os/src/task/pid.rs's
// PidAllocator exactly (including its double-dealloc assertion, which
// here becomes a panic — this kernel has no asserts-compiled-out release
// mode to hide the bug in).
type PidAllocator struct {
	mu       sync.Mutex
	next     int
	recycled []int
}

func NewPidAllocator() *PidAllocator {
	return &PidAllocator{next: 0}
}

// Alloc returns the most recently recycled PID if any is free, else mints
// a new one.
func (a *PidAllocator) Alloc() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := len(a.recycled); n > 0 {
		pid := a.recycled[n-1]
		a.recycled = a.recycled[:n-1]
		return pid
	}
	pid := a.next
	a.next++
	return pid
}

// Dealloc returns pid to the free-list. Panics on a pid that was never
// allocated or was already recycled — both indicate a bookkeeping bug in
// the caller, not a recoverable runtime condition.
func (a *PidAllocator) Dealloc(pid int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if pid >= a.next {
		panic("proc: dealloc of a pid that was never allocated")
	}
	for _, r := range a.recycled {
		if r == pid {
			panic("proc: pid has already been deallocated")
		}
	}
	a.recycled = append(a.recycled, pid)
}

// PidAllocatorGlobal is the kernel's single PID allocator, matching
// original_source's lazy_static PID_ALLOCATOR.
var PidAllocatorGlobal = NewPidAllocator()
