package trap

import "fmt"

// Scause mirrors the subset of RISC-V Sv39 supervisor trap causes this
// kernel cares about (spec.md §4.3). The high bit (interrupt vs
// exception) is folded into distinct named causes rather than carried as
// a separate bit, since nothing here needs the raw CSR encoding.
type Scause int

const (
	UserEnvCall Scause = iota
	StorePageFault
	LoadPageFault
	InstructionPageFault
	IllegalInstruction
	SupervisorTimer
	Other
)

// Outcome tells the caller (proc.Processor) what trap.Dispatch decided
// should happen next: continue running the task, or that it is done for
// with a reason and, where applicable, a signal-like exit code.
type Outcome int

const (
	Continue Outcome = iota
	Kill
)

// Result is Dispatch's verdict for one trap.
type Result struct {
	Outcome  Outcome
	ExitCode int    // meaningful only when Outcome == Kill
	Reason   string // human-readable, goes on the console the way biscuit's Fault_t.String does
}

// Dispatch decides the Outcome for a trap, following spec.md §4.3's
// cause table: UserEnvCall bumps sepc past ecall and reports
// Outcome==Continue (ExitCode unused); the caller, kernel.HandleTrap,
// then runs the syscall itself. Page faults and illegal instructions kill the
// offending task; a timer interrupt preempts without killing anything.
func Dispatch(cause Scause, tc *TrapContext, faultAddr uintptr, diagnose func(pc uintptr) string) Result {
	switch cause {
	case UserEnvCall:
		tc.Sepc += 4 // ecall is always 4 bytes; this kernel has no compressed-instruction support
		return Result{Outcome: Continue}
	case StorePageFault, LoadPageFault, InstructionPageFault:
		detail := ""
		if diagnose != nil {
			detail = diagnose(uintptr(tc.Sepc))
		}
		return Result{
			Outcome:  Kill,
			ExitCode: -2,
			Reason:   fmt.Sprintf("page fault at %#x accessing %#x: %s", tc.Sepc, faultAddr, detail),
		}
	case IllegalInstruction:
		detail := ""
		if diagnose != nil {
			detail = diagnose(uintptr(tc.Sepc))
		}
		return Result{
			Outcome:  Kill,
			ExitCode: -3,
			Reason:   fmt.Sprintf("illegal instruction at %#x: %s", tc.Sepc, detail),
		}
	case SupervisorTimer:
		return Result{Outcome: Continue}
	default:
		return Result{Outcome: Kill, ExitCode: -1, Reason: fmt.Sprintf("unsupported trap cause %d", cause)}
	}
}
