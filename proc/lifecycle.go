package proc

import (
	"fmt"

	"github.com/jason-hue/rvos/config"
	"github.com/jason-hue/rvos/fd"
	"github.com/jason-hue/rvos/mem"
	"github.com/jason-hue/rvos/stats"
	"github.com/jason-hue/rvos/trap"
	"github.com/jason-hue/rvos/vm"
)

// World bundles the shared kernel state lifecycle operations need: the
// frame allocator, the kernel's own address space (for kernel-stack
// insertion), the shared trampoline frame, and the ready queue/processor.
// Grounded on the set of lazy_static globals original_source's task
// module threads through pid.rs/manager.rs/processor.rs; bundled into one
// struct here instead of package-level globals so tests can build an
// isolated World per test rather than sharing mutable package state.
type World struct {
	Alloc         *mem.FrameAllocator
	Kernel        *vm.AddressSpace
	TrampolinePpn mem.Ppn_t
	Ready         *ReadyQueue
	Processor     *Processor
	Pids          *PidAllocator
}

// newProcess builds a PCB from an already-loaded user address space:
// allocates a PID, a kernel stack, initializes the trap context, and
// installs a fresh FD table. Used by NewInitProc; Exec does not call it
// and instead rebuilds the trap context of the existing PCB in place.
func (w *World) newProcess(loaded *vm.Loaded) *Pcb {
	pid := w.Pids.Alloc()
	kstack := NewKernelStack(pid, w.Kernel)

	tr, ok := loaded.AS.FrameAt(config.TrapCxVa)
	if !ok {
		panic("proc: trap context page missing from freshly loaded address space")
	}

	p := &Pcb{
		Pid:     pid,
		Status:  Ready,
		AS:      loaded.AS,
		Kstack:  kstack,
		TrapCx:  tr,
		Fds:     fd.NewTable(),
		Accnt:   &stats.Accnt{},
		Cwd:     "/",
		BrkBase: loaded.BrkBase,
		BrkCur:  loaded.BrkBase,
	}
	*p.TrapContext() = trap.NewAppContext(
		loaded.Entry, loaded.UserSp,
		w.Kernel.Pt.Token(), kstack.Top(), config.Trampoline,
	)
	p.TaskCx = trap.NewTrapReturnContext(kstack.Top())
	return p
}

// NewInitProc builds the first process, matching original_source's
// loader.rs get_app_data+TaskControlBlock::new for PID 0.
func (w *World) NewInitProc(elfData []byte) (*Pcb, error) {
	loaded, err := vm.NewUser(w.Alloc, w.TrampolinePpn, elfData)
	if err != nil {
		return nil, err
	}
	p := w.newProcess(loaded)
	w.Ready.Add(p)
	return p, nil
}

// Fork clones parent into a new child process: an isolated address-space
// copy (vm.FromExisting, byte-copy — no COW, per spec.md Non-goals), a
// fresh PID and kernel stack, a cloned FD table, and a trap context
// copied from the parent's except for a0, which is zeroed so the child's
// fork() returns 0 (spec.md §4.4 fork). The parent's own a0 is set to the
// child's PID by the caller handling the syscall, not here.
func (w *World) Fork(parent *Pcb) *Pcb {
	childAS, ok := vm.FromExisting(w.Alloc, w.TrampolinePpn, parent.AS)
	if !ok {
		return nil
	}
	pid := w.Pids.Alloc()
	kstack := NewKernelStack(pid, w.Kernel)

	tr, ok := childAS.FrameAt(config.TrapCxVa)
	if !ok {
		panic("proc: fork produced an address space with no trap context page")
	}

	child := &Pcb{
		Pid:     pid,
		Name:    parent.Name,
		Status:  Ready,
		AS:      childAS,
		Kstack:  kstack,
		TrapCx:  tr,
		Parent:  parent,
		Fds:     parent.Fds.Clone(),
		Accnt:   &stats.Accnt{},
		Cwd:     parent.Cwd,
		BrkBase: parent.BrkBase,
		BrkCur:  parent.BrkCur,
	}
	*child.TrapContext() = *parent.TrapContext()
	child.TrapContext().X[trap.RegA0] = 0
	child.TrapContext().KernelSp = uint64(kstack.Top())
	child.TaskCx = trap.NewTrapReturnContext(kstack.Top())

	parent.Children = append(parent.Children, child)
	w.Ready.Add(child)
	return child
}

// Exec replaces p's address space with a freshly loaded ELF image in
// place: same PID, same kernel stack, fresh trap context, reset FD table
// (spec.md §4.4 exec). The old address space is destroyed only after the
// new one is built successfully, so a failed exec leaves p running its
// old image rather than half-torn-down.
func (w *World) Exec(p *Pcb, elfData []byte) error {
	loaded, err := vm.NewUser(w.Alloc, w.TrampolinePpn, elfData)
	if err != nil {
		return fmt.Errorf("proc: exec: %w", err)
	}
	old := p.AS
	tr, ok := loaded.AS.FrameAt(config.TrapCxVa)
	if !ok {
		panic("proc: exec produced an address space with no trap context page")
	}
	p.AS = loaded.AS
	p.TrapCx = tr
	p.Fds.Reset()
	p.BrkBase = loaded.BrkBase
	p.BrkCur = loaded.BrkBase
	*p.TrapContext() = trap.NewAppContext(
		loaded.Entry, loaded.UserSp,
		w.Kernel.Pt.Token(), p.Kstack.Top(), config.Trampoline,
	)
	old.Destroy()
	return nil
}

// GrowBrk adjusts p's program break by delta bytes (may be negative) and
// returns the break address before the change, the conventional sbrk(2)
// return value. Returns 0 on allocation failure, matching
// original_source's sys_sbrk returning -1 — this kernel reports failure
// as 0 only because brk addresses are never 0 (BrkBase sits well above
// the zero page), distinguishing it from a legitimate old-break value.
func (w *World) GrowBrk(p *Pcb, delta int) uintptr {
	old := p.BrkCur
	next := uintptr(int64(old) + int64(delta))
	if next < p.BrkBase {
		return 0
	}
	if !p.AS.GrowBrk(p.BrkBase, old, next) {
		return 0
	}
	p.BrkCur = next
	return old
}

// Yield moves the running task p back onto the ready queue as Ready and
// clears it from the processor, modeling suspend_current_and_run_next
// for the non-exiting case (spec.md §4.3 "suspension points").
func (w *World) Yield(p *Pcb) {
	w.Processor.TakeCurrent()
	w.Ready.Add(p)
}

// Exit tears down p: frees its address space and kernel stack, records
// code, marks it Zombie, and reparents its children to init (spec.md
// §4.4 exit). init itself must never exit in a way that calls this with
// a nil Parent and children still alive — that is a kernel bug, not a
// case handled gracefully.
func (w *World) Exit(p *Pcb, code int, init *Pcb) {
	w.Processor.TakeCurrent()
	p.Status = Zombie
	p.ExitCode = code
	for _, c := range p.Children {
		c.Parent = init
		init.Children = append(init.Children, c)
	}
	p.Children = nil
	p.AS.Destroy()
	p.Kstack.Destroy()
}

// WaitPid looks for a zombie child of parent matching pid (-1 meaning
// "any child"), reaps it (removes it from parent.Children, frees its PID)
// and reports its exit code. found is false if no matching child exists
// at all (ECHILD) or none has exited yet (caller should yield and retry —
// spec.md §4.3's "no true in-kernel blocking sleep").
func (w *World) WaitPid(parent *Pcb, pid int) (childPid int, exitCode int, found bool) {
	for i, c := range parent.Children {
		if pid != -1 && c.Pid != pid {
			continue
		}
		if c.Status != Zombie {
			continue
		}
		parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
		w.Pids.Dealloc(c.Pid)
		if parent.Accnt != nil && c.Accnt != nil {
			parent.Accnt.Add(c.Accnt)
		}
		return c.Pid, c.ExitCode, true
	}
	return 0, 0, false
}
