package syscall

import (
	"github.com/jason-hue/rvos/defs"
	"github.com/jason-hue/rvos/fd"
	"github.com/jason-hue/rvos/proc"
)

// sysWrite writes up to count bytes from the user buffer at buf through
// fd's capability. Grounded on original_source/os/src/syscall/fs.rs's
// sys_write, generalized from "fd must be STDOUT" to any writable FD
// table entry, since this kernel has a real FD table rather than a
// stdout-only stub.
func (d *Dispatcher) sysWrite(p *proc.Pcb, fdNum int, buf uintptr, count int) int64 {
	f, err := p.Fds.Get(fdNum)
	if err != 0 {
		return int64(err)
	}
	if !f.Writable() {
		return int64(-defs.EBADF)
	}
	n, err := f.Write(fd.UserBuffer{AS: p.AS, Va: buf, Len: count})
	if err != 0 {
		return int64(err)
	}
	return int64(n)
}

// sysRead is sysWrite's mirror, grounded on sys_read in the same file.
func (d *Dispatcher) sysRead(p *proc.Pcb, fdNum int, buf uintptr, count int) int64 {
	f, err := p.Fds.Get(fdNum)
	if err != 0 {
		return int64(err)
	}
	if !f.Readable() {
		return int64(-defs.EBADF)
	}
	n, err := f.Read(fd.UserBuffer{AS: p.AS, Va: buf, Len: count})
	if err != 0 {
		return int64(err)
	}
	return int64(n)
}

// sysOpen reads the NUL-terminated path out of the caller's address
// space, resolves it through the filesystem, and installs the resulting
// capability in the lowest free FD slot. Supplemented beyond the
// distilled spec: original_source's loader-based batch OS has no open()
// at all, but spec.md §6 lists SYS_OPEN, and the FAT32 module needs a
// caller-facing entry point.
func (d *Dispatcher) sysOpen(p *proc.Pcb, pathVa uintptr, flags int) int64 {
	if d.FS == nil {
		return int64(-defs.ENOSYS)
	}
	path, err := p.AS.CopyInString(pathVa, 256)
	if err != 0 {
		return int64(err)
	}
	f, err := d.FS.Open(path, flags)
	if err != 0 {
		return int64(err)
	}
	return int64(p.Fds.Insert(f))
}

// sysClose closes an FD table slot.
func (d *Dispatcher) sysClose(p *proc.Pcb, fdNum int) int64 {
	return int64(p.Fds.Close(fdNum))
}
