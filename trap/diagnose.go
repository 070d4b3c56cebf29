package trap

import (
	"fmt"

	"golang.org/x/arch/riscv64/riscv64asm"
)

// Diagnose disassembles the instruction at pc for the console message a
// killed task's trap gets reported with (spec.md §4.3, "report addr and
// pc"). code is the raw bytes at pc, already copied out of the faulting
// address space by the caller (kernel's diagnose callback reads them with
// AddressSpace.ReadAt; this package has no address-space access of its
// own). Disassembly
// failure — truncated code, a reserved encoding — is reported as plain
// text rather than propagated, since this path only ever feeds a
// human-readable diagnostic.
func Diagnose(pc uintptr, code []byte) string {
	inst, err := riscv64asm.Decode(code)
	if err != nil {
		return fmt.Sprintf("<undecodable: %v>", err)
	}
	return inst.String()
}
