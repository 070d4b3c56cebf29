package kernel

import (
	"fmt"

	"github.com/jason-hue/rvos/proc"
	"github.com/jason-hue/rvos/trap"
)

// diagnose builds the fault-disassembly callback trap.Dispatch takes:
// read a handful of bytes out of p's address space at pc and hand them
// to trap.Diagnose. Reading an address that turns out to be unmapped
// (an InstructionPageFault's pc, for instance) would otherwise panic
// inside vm's page walk, so this recovers into a plain "unreadable"
// message instead — this path only ever feeds a human-readable console
// line, never a value the kernel acts on.
func diagnose(p *proc.Pcb) func(pc uintptr) string {
	return func(pc uintptr) (s string) {
		defer func() {
			if recover() != nil {
				s = "<unreadable>"
			}
		}()
		code := make([]byte, 4)
		p.AS.ReadAt(pc, code)
		return trap.Diagnose(pc, code)
	}
}

// HandleTrap is the Go analogue of os/src/trap/mod.rs's trap_handler: the
// processor's current task has just trapped for reason cause, with args
// holding a0-a2 and faultAddr the faulting address for a page fault. Real
// hardware decodes scause/stval and lands here through the trampoline;
// this host-only kernel has no RISC-V core to do that decoding, so the
// caller (cmd/kernel's run loop, or a test's TrapSource) supplies it
// directly.
//
// UserEnvCall dispatches the syscall named by a7 and writes its result
// back into a0 — unless the syscall itself already moved the task off
// the processor (exit, or a yield performed inside the handler), in
// which case there is no longer a live trap context to write into.
// SupervisorTimer credits one user tick to the task's accounting and
// yields it. Everything trap.Dispatch reports as Kill is logged and
// reaped. Whatever task is Processor.Current when HandleTrap returns is
// either the same task still running, or nil if the ready queue needs
// the caller to schedule something new.
func (k *Kernel) HandleTrap(cause trap.Scause, args [3]uint64, faultAddr uintptr) {
	p := k.World.Processor.Current()
	if p == nil {
		Panic("kernel: trap with no task on the processor")
	}
	tc := p.TrapContext()
	result := trap.Dispatch(cause, tc, faultAddr, diagnose(p))

	switch {
	case cause == trap.UserEnvCall:
		num := int(tc.X[trap.RegA7])
		p.Accnt.AddSys(1)
		ret := k.Disp.Dispatch(p, num, args)
		if k.World.Processor.Current() == p {
			tc.X[trap.RegA0] = uint64(ret)
		}
	case cause == trap.SupervisorTimer:
		k.Timer.Tick()
		p.Accnt.AddUser(1)
		k.World.Yield(p)
	case result.Outcome == trap.Kill:
		fmt.Printf("[kernel] %s, pid %d killed\n", result.Reason, p.Pid)
		k.World.Exit(p, result.ExitCode, k.Init)
	}
}

// TrapSource supplies the next trap for whatever task the processor
// presently has as current. On real hardware this role belongs to the
// trampoline's assembly trap vector, reading scause/stval off the CSRs;
// there is no such vector here, so RunTasks takes one as a parameter
// instead of reading real hardware state.
type TrapSource interface {
	NextTrap(p *proc.Pcb) (cause trap.Scause, args [3]uint64, faultAddr uintptr)
}

// RunTasks is the scheduler loop of spec.md §4.4: pop the next ready
// task, install it as current, and feed it traps from src until
// HandleTrap has moved it off the processor (by yielding or exiting it),
// then repeat. Returns once the ready queue is empty with no task
// running — original_source's run_tasks loops forever because its app
// set never runs out; this returns instead of spinning so a test (or a
// board that's genuinely out of work) can observe completion.
func (k *Kernel) RunTasks(src TrapSource) {
	for {
		p := k.World.Processor.RunNext(k.World.Ready)
		if p == nil {
			return
		}
		for k.World.Processor.Current() == p {
			cause, args, addr := src.NextTrap(p)
			k.HandleTrap(cause, args, addr)
		}
	}
}
