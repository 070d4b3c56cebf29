// Package syscall dispatches a trapped ecall to the handler named by the
// syscall number in a7 (spec.md §4.3 UserEnvCall, §6 syscall table).
// Grounded on original_source/os/src/syscall/mod.rs's match-based
// dispatcher, translated to a Go switch, and biscuit's syscall/sys.go for
// the idiom of returning a negative defs.Err_t as the syscall's integer
// result rather than a separate error value (this kernel's syscall ABI,
// like Linux's and like biscuit's, multiplexes "return value" and "error
// code" onto one signed integer).
package syscall

import (
	"github.com/jason-hue/rvos/config"
	"github.com/jason-hue/rvos/defs"
	"github.com/jason-hue/rvos/fd"
	"github.com/jason-hue/rvos/proc"
	"github.com/jason-hue/rvos/sbi"
	"github.com/jason-hue/rvos/trap"
)

// Filesystem is the subset of the fs package's surface the syscall layer
// needs, kept as an interface so this package does not import fs
// directly (fs in turn will depend on blkcache, not on proc/syscall —
// keeping the dependency graph a DAG rather than wiring fs straight into
// the syscall layer's own package, matching spec.md §2's acyclic module
// table).
type Filesystem interface {
	Open(path string, flags int) (fd.File, defs.Err_t)
}

// Dispatcher holds the kernel-wide state a syscall handler needs beyond
// the calling process itself: the scheduler World, the timer, and the
// filesystem root.
type Dispatcher struct {
	World *proc.World
	Timer *trap.Timer
	FS    Filesystem
	// Init is the process children get reparented to on exit.
	Init *proc.Pcb
	// Apps backs SYS_LISTAPPS; nil means that syscall reports -ENOSYS.
	Apps Lister
}

// Dispatch runs one syscall on behalf of p and returns the value to place
// in a0. num is a7 (spec.md §6); args are a0-a2, already read out of the
// trap context by the caller (kernel.HandleTrap, once trap has decoded
// UserEnvCall).
func (d *Dispatcher) Dispatch(p *proc.Pcb, num int, args [3]uint64) int64 {
	switch num {
	case defs.SYS_WRITE:
		return d.sysWrite(p, int(args[0]), uintptr(args[1]), int(args[2]))
	case defs.SYS_READ:
		return d.sysRead(p, int(args[0]), uintptr(args[1]), int(args[2]))
	case defs.SYS_OPEN:
		return d.sysOpen(p, uintptr(args[0]), int(args[1]))
	case defs.SYS_CLOSE:
		return d.sysClose(p, int(args[0]))
	case defs.SYS_EXIT:
		d.World.Exit(p, int(int32(args[0])), d.Init)
		return 0
	case defs.SYS_YIELD:
		d.World.Yield(p)
		return 0
	case defs.SYS_GET_TIME:
		// Microseconds since boot.
		return int64(d.Timer.Ticks() * 1000000 / config.TicksPerSecond)
	case defs.SYS_GETPID:
		return int64(p.Pid)
	case defs.SYS_SBRK:
		return d.sysSbrk(p, int(int32(args[0])))
	case defs.SYS_FORK:
		child := d.World.Fork(p)
		if child == nil {
			return int64(-defs.ENOMEM)
		}
		return int64(child.Pid)
	case defs.SYS_EXEC:
		return d.sysExec(p, uintptr(args[0]))
	case defs.SYS_WAITPID:
		return d.sysWaitPid(p, int(int32(args[0])), uintptr(args[1]))
	case defs.SYS_SHUTDOWN:
		sbi.Shutdown(args[0] != 0)
		return 0
	case defs.SYS_GETCHAR:
		return int64(sbi.GetChar())
	case defs.SYS_LISTAPPS:
		return d.sysListApps(p, uintptr(args[0]), int(args[1]), int(args[2]))
	default:
		return int64(-defs.ENOSYS)
	}
}
