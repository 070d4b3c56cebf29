package fd

import "github.com/jason-hue/rvos/vm"

// UserBuffer is a contiguous virtual range in one process's address
// space, translated on demand into kernel-visible byte slices by
// AddressSpace.CopyIn/CopyOut (spec.md §3 "a user-buffer abstraction
// translates a contiguous virtual range... into kernel-visible physical
// slices"). vm's page-crossing CopyIn/CopyOut already do the
// slice-per-page walk the original Rust UserBuffer iterates explicitly,
// so this type is a thin, length-checked wrapper rather than a second
// implementation of that walk.
type UserBuffer struct {
	AS  *vm.AddressSpace
	Va  uintptr
	Len int
}

// WriteFromKernel copies as much of src as fits into the buffer and
// returns the number of bytes copied.
func (b UserBuffer) WriteFromKernel(src []byte) int {
	n := len(src)
	if n > b.Len {
		n = b.Len
	}
	if n == 0 {
		return 0
	}
	b.AS.CopyOut(b.Va, src[:n])
	return n
}

// ReadIntoKernel copies as much of the buffer as fits into dst and
// returns the number of bytes copied.
func (b UserBuffer) ReadIntoKernel(dst []byte) int {
	n := len(dst)
	if n > b.Len {
		n = b.Len
	}
	if n == 0 {
		return 0
	}
	b.AS.CopyIn(b.Va, dst[:n])
	return n
}
