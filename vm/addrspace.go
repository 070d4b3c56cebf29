package vm

import (
	"github.com/jason-hue/rvos/config"
	"github.com/jason-hue/rvos/mem"
	"github.com/jason-hue/rvos/sv39"
)

// AddressSpace is a page table plus an ordered set of map areas (spec.md
// §3). The trampoline page is mapped at the top VPN of every address
// space; user spaces additionally map a trap-context page just below it.
type AddressSpace struct {
	Pt    *sv39.PageTable
	Areas []*Area
	alloc *mem.FrameAllocator
	brk   *Area // program-break region, grown/shrunk by sbrk; nil until first grow
}

func newBare(alloc *mem.FrameAllocator) (*AddressSpace, bool) {
	return New(alloc)
}

// New builds an empty address space (no areas, just a fresh root page
// table) backed by alloc. Exported for callers outside this package that
// need to construct an address space directly — the fd and fs
// packages' tests, and cmd/mkfs.
func New(alloc *mem.FrameAllocator) (*AddressSpace, bool) {
	pt, ok := sv39.New(alloc)
	if !ok {
		return nil, false
	}
	return &AddressSpace{Pt: pt, alloc: alloc}, true
}

// insert records area and rejects overlap with any existing area, per
// spec.md §3's "map areas do not overlap" invariant.
func (as *AddressSpace) insert(area *Area) {
	for _, existing := range as.Areas {
		if existing.overlaps(area) {
			panic("vm: overlapping map areas: " + existing.String() + " vs " + area.String())
		}
	}
	as.Areas = append(as.Areas, area)
}

// MapIdentity maps [start, end) 1:1 (vpn == ppn) with perms, for kernel
// regions like .text/.rodata/.data+.bss and the physical frame pool.
func (as *AddressSpace) MapIdentity(start, end uintptr, perms sv39.Flag) {
	s, e := vpnRange(start, end)
	area := &Area{Kind: Identity, VpnStart: s, VpnEnd: e, Perms: perms}
	for v := s; v < e; v++ {
		if !as.Pt.Map(splitVpn(v), mem.Ppn_t(v), perms|sv39.V) {
			panic("vm: out of memory mapping kernel identity region")
		}
	}
	as.insert(area)
}

// MapFramed allocates fresh zeroed frames for [start, end) and maps them
// with perms. It returns false on allocation failure, in which case any
// frames already allocated for this call are freed and no mapping
// persists.
func (as *AddressSpace) MapFramed(start, end uintptr, perms sv39.Flag) bool {
	s, e := vpnRange(start, end)
	area := &Area{Kind: Framed, VpnStart: s, VpnEnd: e, Perms: perms, frames: map[uint64]*mem.Tracker{}}
	rollback := func() {
		for fv, f := range area.frames {
			as.Pt.Unmap(splitVpn(fv))
			f.Free()
		}
	}
	for v := s; v < e; v++ {
		tr, ok := as.alloc.Alloc()
		if !ok {
			rollback()
			return false
		}
		if !as.Pt.Map(splitVpn(v), tr.Ppn, perms|sv39.V) {
			tr.Free()
			rollback()
			return false
		}
		area.frames[v] = tr
	}
	as.insert(area)
	return true
}

// MapSharedFrame maps a single already-owned physical frame (such as the
// trampoline page, shared verbatim across every address space) at va with
// perms. The frame is not owned by the resulting area: destroying the
// address space does not free it.
func (as *AddressSpace) MapSharedFrame(va uintptr, ppn mem.Ppn_t, perms sv39.Flag) {
	v := uint64(va) >> config.PGSHIFT
	area := &Area{Kind: Identity, VpnStart: v, VpnEnd: v + 1, Perms: perms}
	if !as.Pt.Map(splitVpn(v), ppn, perms|sv39.V) {
		panic("vm: out of memory mapping shared frame")
	}
	as.insert(area)
}

// WriteAt copies src into the frames backing a Framed area at virtual
// address va, crossing page boundaries as needed. It panics if any page of
// [va, va+len(src)) lies outside every Framed area — callers
// (the ELF loader, fork's byte-copy) are expected to have just created
// that area themselves.
func (as *AddressSpace) WriteAt(va uintptr, src []byte) {
	for len(src) > 0 {
		vpn := uint64(va) >> config.PGSHIFT
		area := as.framedAreaFor(vpn)
		tr := area.frames[vpn]
		off := int(va) & (config.PGSIZE - 1)
		n := copy(tr.Bytes()[off:], src)
		src = src[n:]
		va += uintptr(n)
	}
}

// ReadAt is WriteAt's inverse, used by fork's address-space clone.
func (as *AddressSpace) ReadAt(va uintptr, dst []byte) {
	for len(dst) > 0 {
		vpn := uint64(va) >> config.PGSHIFT
		area := as.framedAreaFor(vpn)
		tr := area.frames[vpn]
		off := int(va) & (config.PGSIZE - 1)
		n := copy(dst, tr.Bytes()[off:])
		dst = dst[n:]
		va += uintptr(n)
	}
}

// FrameAt returns the Tracker backing va in whichever Framed area covers
// it, for callers that need direct access to a page outside the normal
// CopyIn/CopyOut path — proc.Pcb uses this to reach the trap-context page
// without walking the page table on every trap.
func (as *AddressSpace) FrameAt(va uintptr) (*mem.Tracker, bool) {
	vpn := uint64(va) >> config.PGSHIFT
	for _, a := range as.Areas {
		if a.Kind == Framed && vpn >= a.VpnStart && vpn < a.VpnEnd {
			return a.frames[vpn], true
		}
	}
	return nil, false
}

func (as *AddressSpace) framedAreaFor(vpn uint64) *Area {
	for _, a := range as.Areas {
		if a.Kind == Framed && vpn >= a.VpnStart && vpn < a.VpnEnd {
			return a
		}
	}
	panic("vm: write/read outside any framed area")
}

// HighestMappedVpn returns one past the highest VPN any area (other than
// the trampoline/trap-context pages, which live above everything) maps,
// used to place the guard page and user stack right after the ELF image.
func (as *AddressSpace) HighestMappedVpn() uint64 {
	var max uint64
	trampolineVpn := uint64(config.Trampoline) >> config.PGSHIFT
	for _, a := range as.Areas {
		if a.VpnEnd > max && a.VpnStart < trampolineVpn {
			max = a.VpnEnd
		}
	}
	return max
}

// Destroy frees every Framed area's frames and the page table's own
// frames. Identity areas backed by shared/kernel memory are left alone:
// only a Framed area's map.frames are owned by this address space.
func (as *AddressSpace) Destroy() {
	for _, a := range as.Areas {
		if a.Kind == Framed {
			for _, f := range a.frames {
				f.Free()
			}
		}
	}
	as.Areas = nil
	as.Pt.Destroy()
}
