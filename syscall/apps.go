package syscall

import (
	"github.com/jason-hue/rvos/defs"
	"github.com/jason-hue/rvos/fd"
	"github.com/jason-hue/rvos/proc"
)

// Lister backs SYS_LISTAPPS (spec.md §6's list_apps). SPEC_FULL's domain
// stack doubles this syscall as a lightweight profile-dump hook: mode 0
// returns the known app names newline-joined, mode 1 returns a
// pprof-format dump of every live process's accumulated ticks. Kept as an
// interface, implemented by kernel.Kernel, so this package does not need
// to import proc.World's ready-queue internals or the stats/pprof wire
// format directly — the same reason Filesystem above is an interface.
type Lister interface {
	ListApps(mode int) []byte
}

// sysListApps copies d.Apps.ListApps(mode)'s result into the caller's
// buffer, truncating to count bytes, and returns the number of bytes
// copied.
func (d *Dispatcher) sysListApps(p *proc.Pcb, bufVa uintptr, count int, mode int) int64 {
	if d.Apps == nil {
		return int64(-defs.ENOSYS)
	}
	data := d.Apps.ListApps(mode)
	n := fd.UserBuffer{AS: p.AS, Va: bufVa, Len: count}.WriteFromKernel(data)
	return int64(n)
}
