package proc

import "github.com/jason-hue/rvos/trap"

// Processor holds the single CPU's scheduling state: the task presently
// running (if any) and an idle task context __switch returns to between
// processes. Grounded on original_source/os/src/task/processor.rs's
// Processor/PROCESSOR, collapsed to the single-CPU case spec.md scopes
// this kernel to (no per-hart processor array).
//
// This module has no real RISC-V register file to switch, so RunNext
// below models the bookkeeping __switch performs (which task is
// "current", recording the idle context to resume into) without the
// assembly trampoline itself; the caller is the piece that would, on real
// hardware, be the assembly stub jumping through TaskContext.Ra.
type Processor struct {
	current *Pcb
	idleCx  trap.TaskContext
}

func NewProcessor() *Processor { return &Processor{} }

// Current returns the presently running task, or nil if the processor is
// idle.
func (pr *Processor) Current() *Pcb { return pr.current }

// TakeCurrent clears and returns the running task, used by exit/suspend
// paths that are about to hand the CPU back to the idle loop.
func (pr *Processor) TakeCurrent() *Pcb {
	p := pr.current
	pr.current = nil
	return p
}

// RunNext pops the next ready task from q, marks it Running, and installs
// it as current. Returns nil if the queue is empty (nothing to run).
func (pr *Processor) RunNext(q *ReadyQueue) *Pcb {
	next := q.Fetch()
	if next == nil {
		return nil
	}
	next.Status = Running
	pr.current = next
	return next
}

// ProcessorGlobal is the kernel's single-CPU processor, matching
// original_source's lazy_static PROCESSOR.
var ProcessorGlobal = NewProcessor()
