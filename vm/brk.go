package vm

import (
	"github.com/jason-hue/rvos/config"
	"github.com/jason-hue/rvos/mem"
	"github.com/jason-hue/rvos/sv39"
)

// GrowBrk adjusts the program break: base is the fixed virtual address
// brk growth starts from (vm.Loaded.BrkBase), and cur/next are the
// current and requested break addresses. It maps newly covered pages on
// growth or frees/unmaps trailing pages on shrink, and returns false only
// on allocation failure (shrink never fails). spec.md §4.2 step 5
// reserves this region right above the user stack.
func (as *AddressSpace) GrowBrk(base, cur, next uintptr) bool {
	if next == cur {
		return true
	}
	curVpn := (uint64(cur-base) + uint64(config.PGSIZE) - 1) >> config.PGSHIFT
	nextVpn := (uint64(next-base) + uint64(config.PGSIZE) - 1) >> config.PGSHIFT
	baseVpn := uint64(base) >> config.PGSHIFT

	if as.brk == nil {
		as.brk = &Area{Kind: Framed, VpnStart: baseVpn, VpnEnd: baseVpn, Perms: sv39.R | sv39.W | sv39.U, frames: map[uint64]*mem.Tracker{}}
		as.Areas = append(as.Areas, as.brk)
	}

	if nextVpn > curVpn {
		for v := baseVpn + curVpn; v < baseVpn+nextVpn; v++ {
			tr, ok := as.alloc.Alloc()
			if !ok {
				return false
			}
			if !as.Pt.Map(splitVpn(v), tr.Ppn, as.brk.Perms|sv39.V) {
				tr.Free()
				return false
			}
			as.brk.frames[v] = tr
		}
		as.brk.VpnEnd = baseVpn + nextVpn
	} else if nextVpn < curVpn {
		for v := baseVpn + nextVpn; v < baseVpn+curVpn; v++ {
			if tr, ok := as.brk.frames[v]; ok {
				as.Pt.Unmap(splitVpn(v))
				tr.Free()
				delete(as.brk.frames, v)
			}
		}
		as.brk.VpnEnd = baseVpn + nextVpn
	}
	return true
}
