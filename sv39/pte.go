// Package sv39 implements the RISC-V Sv39 three-level page table: PTE flag
// layout, vpn/ppn indexing, and the page-table walk used by both the
// kernel and per-process address spaces (spec.md §3-4.2). Grounded on
// biscuit's vm.pmap_walk (vm/as.go) generalized from biscuit's x86
// four-level, COW-aware table down to the Sv39 three-level, no-COW table
// this spec calls for (demand paging/COW is an explicit Non-goal).
package sv39

import (
	"fmt"

	"github.com/jason-hue/rvos/config"
	"github.com/jason-hue/rvos/mem"
)

// Flag is a single Sv39 PTE permission/status bit.
type Flag uint64

const (
	V Flag = 1 << 0 // valid
	R Flag = 1 << 1 // readable
	W Flag = 1 << 2 // writable
	X Flag = 1 << 3 // executable
	U Flag = 1 << 4 // user-accessible
	G Flag = 1 << 5 // global
	A Flag = 1 << 6 // accessed
	D Flag = 1 << 7 // dirty
)

const (
	flagMask = Flag(0xff)
	ppnShift = 10
)

// Pte is one 64-bit Sv39 page-table entry.
type Pte uint64

// Valid reports whether V is set.
func (p Pte) Valid() bool { return Flag(p)&V != 0 }

// Leaf reports whether the entry is a leaf (any of R/W/X set); a non-leaf
// PTE has V set and R=W=X=0 per spec.md §3.
func (p Pte) Leaf() bool { return Flag(p)&(R|W|X) != 0 }

// Ppn extracts the physical page number encoded in the entry.
func (p Pte) Ppn() mem.Ppn_t { return mem.Ppn_t(p >> ppnShift) }

// Flags extracts the flag bits of the entry.
func (p Pte) Flags() Flag { return Flag(p) & flagMask }

func mkPte(ppn mem.Ppn_t, flags Flag) Pte {
	return Pte(uint64(ppn)<<ppnShift) | Pte(flags)
}

// Vpn is a three-level virtual page number, indices ordered root-first.
type Vpn [3]uint64

// VpnOf decomposes a virtual address into its Sv39 VPN indices.
func VpnOf(va uintptr) Vpn {
	vpn := uint64(va) >> config.PGSHIFT
	return Vpn{
		(vpn >> 18) & 0x1ff,
		(vpn >> 9) & 0x1ff,
		vpn & 0x1ff,
	}
}

// Va reconstructs the page-aligned virtual address a VPN denotes.
func (v Vpn) Va() uintptr {
	n := (v[0]<<18 | v[1]<<9 | v[2]) << config.PGSHIFT
	return uintptr(n)
}

func (v Vpn) String() string {
	return fmt.Sprintf("vpn(%#x,%#x,%#x)", v[0], v[1], v[2])
}
