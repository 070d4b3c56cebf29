// Package vm builds per-process address spaces out of sv39 page tables:
// map areas, the ELF loader, the trampoline/trap-context placement, and
// the userspace-buffer translation used by syscalls (spec.md §3-4.2).
// Grounded on biscuit's vm.Vm_t (vm/as.go), with its demand-paging and
// copy-on-write machinery removed — spec.md's Non-goals exclude both, and
// segments here are loaded eagerly by byte-copy instead of faulted in.
package vm

import (
	"fmt"

	"github.com/jason-hue/rvos/config"
	"github.com/jason-hue/rvos/mem"
	"github.com/jason-hue/rvos/sv39"
)

// Kind distinguishes an area whose VPNs equal their PPNs (kernel identity
// mappings) from one backed by allocated frames (everything user-facing).
type Kind int

const (
	Identity Kind = iota
	Framed
)

// Area is a half-open VPN range mapped with uniform permissions. A Framed
// area owns the frames backing it; dropping it (via
// AddressSpace.RemoveKernelStack or Destroy) unmaps and frees them, per spec.md §3's map-area invariant.
type Area struct {
	Kind     Kind
	VpnStart uint64 // inclusive, raw vpn (not Sv39-split)
	VpnEnd   uint64 // exclusive
	Perms    sv39.Flag
	frames   map[uint64]*mem.Tracker // vpn -> frame tracker, Framed only
}

func vpnRange(start, end uintptr) (uint64, uint64) {
	s := uint64(start) >> config.PGSHIFT
	e := (uint64(end) + uint64(config.PGSIZE) - 1) >> config.PGSHIFT
	return s, e
}

func splitVpn(raw uint64) sv39.Vpn {
	return sv39.Vpn{(raw >> 18) & 0x1ff, (raw >> 9) & 0x1ff, raw & 0x1ff}
}

// overlaps reports whether two VPN ranges share any page.
func (a *Area) overlaps(b *Area) bool {
	return a.VpnStart < b.VpnEnd && b.VpnStart < a.VpnEnd
}

func (a *Area) String() string {
	return fmt.Sprintf("area[%#x,%#x) perms=%#x kind=%d", a.VpnStart, a.VpnEnd, a.Perms, a.Kind)
}
