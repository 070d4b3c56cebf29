package vm

import (
	"bytes"
	"debug/elf"
	"fmt"

	"github.com/jason-hue/rvos/config"
	"github.com/jason-hue/rvos/mem"
	"github.com/jason-hue/rvos/sv39"
)

// segFlags converts an ELF program-header flag set into Sv39 permission
// bits. Every user segment is mapped U=1; R/W/X follow the ELF flags
// directly (spec.md §4.2 step 2).
func segFlags(f elf.ProgFlag) sv39.Flag {
	perms := sv39.U
	if f&elf.PF_R != 0 {
		perms |= sv39.R
	}
	if f&elf.PF_W != 0 {
		perms |= sv39.W
	}
	if f&elf.PF_X != 0 {
		perms |= sv39.X
	}
	return perms
}

// Loaded describes the outcome of building a fresh user address space
// from an ELF image: the space itself, the initial user stack pointer,
// the entry point, and the virtual address right above the stack where
// brk-growth begins.
type Loaded struct {
	AS        *AddressSpace
	UserSp    uintptr
	Entry     uintptr
	BrkBase   uintptr
}

// NewUser builds a fresh user address space from an ELF image: loads each
// PT_LOAD segment by eager byte-copy (no demand paging — spec.md Non-goals),
// appends a guard page and a user stack, maps the shared trampoline frame
// at config.Trampoline, and maps a fresh trap-context frame at
// config.TrapCxVa. Per spec.md §4.2.
func NewUser(alloc *mem.FrameAllocator, trampolinePpn mem.Ppn_t, elfData []byte) (*Loaded, error) {
	ef, err := elf.NewFile(bytes.NewReader(elfData))
	if err != nil {
		return nil, fmt.Errorf("vm: parsing elf: %w", err)
	}
	as, ok := newBare(alloc)
	if !ok {
		return nil, fmt.Errorf("vm: out of memory allocating page table")
	}

	for _, prog := range ef.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		start := uintptr(prog.Vaddr)
		end := start + uintptr(prog.Memsz)
		perms := segFlags(prog.Flags)
		if !as.MapFramed(start, end, perms) {
			as.Destroy()
			return nil, fmt.Errorf("vm: out of memory loading segment at %#x", start)
		}
		data := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(data, 0); err != nil {
			as.Destroy()
			return nil, fmt.Errorf("vm: reading segment at %#x: %w", start, err)
		}
		as.WriteAt(start, data)
	}

	highVpn := as.HighestMappedVpn()
	guardVpn := highVpn + 1
	stackBottom := uintptr(guardVpn) << config.PGSHIFT
	stackTop := stackBottom + uintptr(config.UserStackSize)
	if !as.MapFramed(stackBottom, stackTop, sv39.R|sv39.W|sv39.U) {
		as.Destroy()
		return nil, fmt.Errorf("vm: out of memory mapping user stack")
	}

	as.MapSharedFrame(config.Trampoline, trampolinePpn, sv39.R|sv39.X)

	if !as.MapFramed(config.TrapCxVa, config.TrapCxVa+uintptr(config.PGSIZE), sv39.R|sv39.W) {
		as.Destroy()
		return nil, fmt.Errorf("vm: out of memory mapping trap context")
	}

	return &Loaded{
		AS:      as,
		UserSp:  stackTop,
		Entry:   uintptr(ef.Entry),
		BrkBase: stackTop,
	}, nil
}

// FromExisting builds a fresh address space structurally identical to src
// and byte-copies every Framed area's pages into newly allocated frames,
// per spec.md §4.2's from_existed (used by fork). Shared frames such as
// the trampoline are re-mapped to the same physical page, not copied.
func FromExisting(alloc *mem.FrameAllocator, trampolinePpn mem.Ppn_t, src *AddressSpace) (*AddressSpace, bool) {
	dst, ok := newBare(alloc)
	if !ok {
		return nil, false
	}
	for _, a := range src.Areas {
		switch a.Kind {
		case Framed:
			start := uintptr(a.VpnStart) << config.PGSHIFT
			end := uintptr(a.VpnEnd) << config.PGSHIFT
			if !dst.MapFramed(start, end, a.Perms) {
				dst.Destroy()
				return nil, false
			}
			buf := make([]byte, end-start)
			src.ReadAt(start, buf)
			dst.WriteAt(start, buf)
		case Identity:
			if a.VpnStart == uint64(config.Trampoline)>>config.PGSHIFT {
				dst.MapSharedFrame(config.Trampoline, trampolinePpn, a.Perms)
			}
			// other Identity areas only occur in the kernel address
			// space, which is never cloned via FromExisting.
		}
	}
	return dst, true
}
