package sv39

import (
	"github.com/jason-hue/rvos/mem"
)

const entriesPerTable = 512

// pageOf returns the 512-entry Pte table backing the frame tracked by t.
func pageOf(t *mem.Tracker) *[entriesPerTable]Pte {
	return (*[entriesPerTable]Pte)(bytesAsPteTable(t.Bytes()))
}

// PageTable is a three-level Sv39 page table. It owns the root frame and
// every intermediate-level frame it allocates; it does not own leaf frames
// mapped via Map (those belong to the map area that requested the
// mapping), matching spec.md's "map area... owns its frames" split.
type PageTable struct {
	alloc  *mem.FrameAllocator
	root   *mem.Tracker
	inner  []*mem.Tracker // intermediate-level tables this table allocated
}

// New allocates a fresh, empty page table.
func New(alloc *mem.FrameAllocator) (*PageTable, bool) {
	root, ok := alloc.Alloc()
	if !ok {
		return nil, false
	}
	return &PageTable{alloc: alloc, root: root}, true
}

// RootPpn returns the physical page number of the root table.
func (pt *PageTable) RootPpn() mem.Ppn_t { return pt.root.Ppn }

// Token returns the satp-encoded root of this table: mode 8 (Sv39) in the
// top four bits, the root PPN in the low 44 bits.
func (pt *PageTable) Token() uint64 {
	const modeSv39 = uint64(8) << 60
	return modeSv39 | uint64(pt.root.Ppn)
}

// walk returns the leaf PTE slot for vpn, allocating intermediate tables
// along the way when alloc is true. It returns ok=false when an
// intermediate table would be needed but alloc is false, when allocation
// of a new intermediate table fails, or when a leaf PTE sits at an
// intermediate level.
func (pt *PageTable) walk(vpn Vpn, alloc bool) (*Pte, bool) {
	ppn := pt.root.Ppn
	for level := 0; level < 2; level++ {
		table := pageOf(pt.frameFor(ppn))
		entry := &table[vpn[level]]
		if !entry.Valid() {
			if !alloc {
				return nil, false
			}
			child, ok := pt.alloc.Alloc()
			if !ok {
				return nil, false
			}
			pt.inner = append(pt.inner, child)
			*entry = mkPte(child.Ppn, V)
			ppn = child.Ppn
			continue
		}
		if entry.Leaf() {
			// a huge page shadows the rest of the walk; not used by this
			// kernel (no superpages), but guard against a bad table.
			return nil, false
		}
		ppn = entry.Ppn()
	}
	table := pageOf(pt.frameFor(ppn))
	return &table[vpn[2]], true
}

// frameFor returns a Tracker-shaped view over an already-owned frame, for
// reuse by pageOf. The root and every intermediate table are tracked by
// this PageTable, so we can look them up without a separate PPN->Tracker
// map: we just remember the trackers themselves.
func (pt *PageTable) frameFor(ppn mem.Ppn_t) *mem.Tracker {
	if ppn == pt.root.Ppn {
		return pt.root
	}
	for _, t := range pt.inner {
		if t.Ppn == ppn {
			return t
		}
	}
	panic("sv39: walk reached a ppn this table does not own")
}

// Map installs vpn -> ppn with the given flags (V is added automatically).
// It allocates any missing intermediate tables. It returns false only on
// allocation failure.
func (pt *PageTable) Map(vpn Vpn, ppn mem.Ppn_t, flags Flag) bool {
	pte, ok := pt.walk(vpn, true)
	if !ok {
		return false
	}
	if pte.Valid() {
		panic("sv39: remap of already-mapped vpn")
	}
	*pte = mkPte(ppn, flags|V)
	return true
}

// Unmap clears the leaf PTE for vpn. Interior tables are not reclaimed
// (spec.md §4.2: "simpler; acceptable given short kernel lifetime").
// Unmapping an address with no mapping is a no-op.
func (pt *PageTable) Unmap(vpn Vpn) {
	pte, ok := pt.walk(vpn, false)
	if !ok || !pte.Valid() {
		return
	}
	*pte = 0
}

// Translate returns the leaf PTE for vpn, or ok=false if vpn is not
// mapped.
func (pt *PageTable) Translate(vpn Vpn) (Pte, bool) {
	pte, ok := pt.walk(vpn, false)
	if !ok || !pte.Valid() {
		return 0, false
	}
	return *pte, true
}

// TranslateVa resolves a virtual address to its backing physical address,
// or ok=false if unmapped.
func (pt *PageTable) TranslateVa(va uintptr) (uintptr, bool) {
	pte, ok := pt.Translate(VpnOf(va))
	if !ok {
		return 0, false
	}
	off := va & uintptr(0xfff)
	return uintptr(pte.Ppn())<<12 | off, true
}

// Destroy frees every frame this table owns: its intermediate tables and
// its root. Leaf frames are not touched — the owning map area frees those.
func (pt *PageTable) Destroy() {
	for _, t := range pt.inner {
		t.Free()
	}
	pt.inner = nil
	pt.root.Free()
}
