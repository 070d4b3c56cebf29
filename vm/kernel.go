package vm

import (
	"github.com/jason-hue/rvos/config"
	"github.com/jason-hue/rvos/mem"
	"github.com/jason-hue/rvos/sv39"
)

// Sections carries the section-boundary symbols the boot/linker glue
// publishes (spec.md §6 "Boot environment"): stext/etext/srodata/... The
// kernel address space identity-maps each at the permissions spec.md §4.2
// specifies.
type Sections struct {
	Stext, Etext     uintptr
	Srodata, Erodata uintptr
	Sdata, Ebss      uintptr
	Ekernel          uintptr
	MemoryEnd        uintptr
	MMIO             []MMIORange
}

// MMIORange is one memory-mapped-I/O window the board wires up (e.g. the
// VirtIO block device's registers), mapped RW in the kernel space.
type MMIORange struct {
	Start, End uintptr
}

// NewKernel builds the kernel's single, never-destroyed address space:
// identity mappings for every kernel section, the physical frame pool,
// configured MMIO windows, and the shared trampoline page.
func NewKernel(alloc *mem.FrameAllocator, sec Sections, trampolinePpn mem.Ppn_t) *AddressSpace {
	as, ok := newBare(alloc)
	if !ok {
		panic("vm: out of memory building kernel address space")
	}
	as.MapIdentity(sec.Stext, sec.Etext, sv39.R|sv39.X)
	as.MapIdentity(sec.Srodata, sec.Erodata, sv39.R)
	as.MapIdentity(sec.Sdata, sec.Ebss, sv39.R|sv39.W)
	as.MapIdentity(sec.Ekernel, sec.MemoryEnd, sv39.R|sv39.W)
	for _, m := range sec.MMIO {
		as.MapIdentity(m.Start, m.End, sv39.R|sv39.W)
	}
	as.MapSharedFrame(config.Trampoline, trampolinePpn, sv39.R|sv39.X)
	return as
}

// InsertKernelStack maps the pid-th process's kernel stack as a Framed RW
// area at its PID-derived virtual location, leaving the page below it (at
// KernelStackBottom-PGSIZE) unmapped as a guard. Returns false on OOM.
func (as *AddressSpace) InsertKernelStack(pid int) bool {
	bottom := config.KernelStackBottom(pid)
	top := config.KernelStackTop(pid)
	return as.MapFramed(bottom, top, sv39.R|sv39.W)
}

// RemoveKernelStack unmaps the pid-th kernel stack and frees its frames
// when its process exits.
func (as *AddressSpace) RemoveKernelStack(pid int) {
	bottom := config.KernelStackBottom(pid)
	for i, a := range as.Areas {
		if a.Kind == Framed && a.VpnStart == uint64(bottom)>>config.PGSHIFT {
			for v, f := range a.frames {
				as.Pt.Unmap(splitVpn(v))
				f.Free()
			}
			as.Areas = append(as.Areas[:i], as.Areas[i+1:]...)
			return
		}
	}
}
