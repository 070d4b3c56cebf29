package proc

import (
	"unsafe"

	"github.com/jason-hue/rvos/trap"
)

// bytesAsTrapContext reinterprets a frame's backing bytes as a
// *trap.TrapContext, the same unsafe.Pointer reinterpretation idiom
// sv39 uses for page-table frames (sv39/unsafe.go).
func bytesAsTrapContext(b []byte) *trap.TrapContext {
	return (*trap.TrapContext)(unsafe.Pointer(&b[0]))
}
