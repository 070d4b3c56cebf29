package proc

import (
	"github.com/jason-hue/rvos/fd"
	"github.com/jason-hue/rvos/mem"
	"github.com/jason-hue/rvos/stats"
	"github.com/jason-hue/rvos/trap"
	"github.com/jason-hue/rvos/vm"
)

// Status is a process's scheduling state, spec.md §3 "Process": Ready
// (on the ready queue), Running (the one task the processor is
// currently on), or Zombie (exited, waiting to be reaped by its parent).
type Status int

const (
	Ready Status = iota
	Running
	Zombie
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Zombie:
		return "zombie"
	default:
		return "unknown"
	}
}

// Pcb is the process control block, spec.md §3 "Process": PID, address
// space, kernel stack, task context, status, parent/children, FD table,
// exit code, and working directory. Grounded on
// original_source/os/src/task/task.rs's TaskControlBlock plus the fields
// its TaskControlBlockInner accumulates across manager.rs/processor.rs,
// and biscuit's proc/proc.go for the Go idiom of one struct owning all of
// a process's kernel-side state directly rather than behind an Arc/Mutex
// split (this kernel is single-CPU, so the big-lock already serializes
// access — see SPEC_FULL.md §2's cmd/lockcheck entry on the big-lock
// discipline).
type Pcb struct {
	Pid      int
	Name     string // app path/label, for ps-style listing; set by kernel.Boot for initproc, copied by Fork, left unchanged by Exec
	Status   Status
	AS       *vm.AddressSpace
	Kstack   *KernelStack
	TrapCx   *mem.Tracker
	TaskCx   trap.TaskContext
	Parent   *Pcb // nil for initproc; conceptually a weak reference, but Go's GC handles the parent<->children cycle without a manual weak-pointer type
	Children []*Pcb
	Fds      *fd.Table
	Accnt    *stats.Accnt // accumulated user/sys ticks, merged into the parent's on reap
	ExitCode int
	Cwd      string
	BrkBase  uintptr // fixed va sbrk grows from, set once at load/exec time
	BrkCur   uintptr // current break; BrkCur >= BrkBase always
}

// TrapContext returns a pointer to the process's live trap context. The
// trap-context page is owned by a Tracker reachable directly from the
// kernel (not through the process's own page table), so the scheduler
// can read and write it on every trap without a page-table walk.
func (p *Pcb) TrapContext() *trap.TrapContext {
	return bytesAsTrapContext(p.TrapCx.Bytes())
}
