// Package trap defines the two register-file layouts the trampoline and
// the cooperative scheduler exchange across a privilege or task boundary
// — TrapContext and TaskContext — plus the trap dispatcher that decides
// what a given scause means (spec.md §3 "Trap context"/"Task context",
// §4.3). Grounded on os/src/trap/Context.rs and os/src/task/context.rs in
// original_source, translated into the struct-of-registers shape biscuit
// itself uses for its own x86 TrapFrame (not present in the retrieved
// pack, but biscuit's house style of one struct per saved register file is
// followed here).
package trap

// TrapContext is the saved register file of a user program at the moment
// it enters the kernel: 32 GPRs, sstatus, sepc, and three kernel-side
// fields the trampoline needs to find the kernel stack and the Go-level
// dispatcher without any other state (spec.md §3). It is always placed at
// a fixed virtual address (config.TrapCxVa) in the user address space.
type TrapContext struct {
	X           [32]uint64 // x0..x31; x[0] is always 0, kept for offset parity with the trampoline's store/load loop
	Sstatus     uint64
	Sepc        uint64
	KernelSatp  uint64 // satp to install on trap entry
	KernelSp    uint64 // kernel stack top to switch to on trap entry
	TrapHandler uint64 // virtual address of trap_handler in the kernel's identity mapping
}

// Register indices into X, named the way RISC-V ABI names them.
const (
	RegSp = 2
	RegA0 = 10
	RegA1 = 11
	RegA2 = 12
	RegA7 = 17
)

// NewAppContext builds the initial trap context for a freshly loaded or
// exec'd program: sepc at entry, x[2] (sp) at userSp, and the kernel-side
// fields trap_return needs to re-arm itself. Mirrors
// os/src/trap/Context.rs's app_init_context.
func NewAppContext(entry, userSp uintptr, kernelSatp uint64, kernelSp, trapHandler uintptr) TrapContext {
	var tc TrapContext
	tc.X[RegSp] = uint64(userSp)
	tc.Sepc = uint64(entry)
	tc.KernelSatp = kernelSatp
	tc.KernelSp = uint64(kernelSp)
	tc.TrapHandler = uint64(trapHandler)
	// sstatus.SPP must be 0 (U-mode) so sret drops to user mode; this
	// kernel keeps sstatus otherwise untouched at first entry.
	return tc
}

// TaskContext is the callee-saved register file __switch exchanges
// between two in-kernel flows of control: the twelve callee-saved GPRs
// (s0-s11), sp, and the return address the switch resumes at. Used both
// for ordinary processes and the scheduler's idle context (spec.md §3).
type TaskContext struct {
	Ra uint64
	Sp uint64
	S  [12]uint64
}

// NewTrapReturnContext builds the task context a freshly forked or
// exec'd process resumes into: ra points at trap_return (represented here
// by the TrapReturnMarker sentinel), sp is the top of the process's kernel
// stack.
func NewTrapReturnContext(kstackTop uintptr) TaskContext {
	return TaskContext{Ra: TrapReturnMarker, Sp: uint64(kstackTop)}
}

// TrapReturnMarker is a sentinel Ra value meaning "resume by calling
// trap_return", standing in for the real kernel's symbol address (this
// kernel has no linker to resolve one). No code in this module jumps
// through Ra or branches on the marker; it only labels a task context
// built by NewTrapReturnContext.
const TrapReturnMarker = ^uint64(0)
