package syscall

import (
	"github.com/jason-hue/rvos/defs"
	"github.com/jason-hue/rvos/fd"
)

// readWholeFile reads f's full contents into kernel memory for exec,
// which needs the raw ELF bytes before any user address space exists to
// translate a UserBuffer through.
func readWholeFile(f fd.File) ([]byte, defs.Err_t) {
	wf, ok := f.(fd.WholeFileReader)
	if !ok {
		return nil, -defs.EINVAL
	}
	return wf.ReadAll()
}
