package proc

import (
	"github.com/jason-hue/rvos/config"
	"github.com/jason-hue/rvos/vm"
)

// KernelStack is the per-process kernel stack, mapped into the shared
// kernel address space below the trampoline at a position derived
// purely from the PID (spec.md §3 "Kernel stack"; original_source's
// kernel_stack_position). Destroying it unmaps its region from the
// kernel address space — the inverse of original_source's Drop impl.
type KernelStack struct {
	pid     int
	kernel  *vm.AddressSpace
}

// NewKernelStack maps a fresh kernel stack for pid into kernel and
// returns a handle that owns the mapping.
func NewKernelStack(pid int, kernel *vm.AddressSpace) *KernelStack {
	if !kernel.InsertKernelStack(pid) {
		panic("proc: out of memory mapping kernel stack")
	}
	return &KernelStack{pid: pid, kernel: kernel}
}

// Top returns the virtual address the stack pointer starts at.
func (ks *KernelStack) Top() uintptr { return config.KernelStackTop(ks.pid) }

// Destroy unmaps the stack from the kernel address space. Must be called
// exactly once, when the owning process exits (World.Exit).
func (ks *KernelStack) Destroy() {
	ks.kernel.RemoveKernelStack(ks.pid)
}
