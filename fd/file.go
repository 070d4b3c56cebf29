// Package fd implements the kernel-object layer: the File capability
// every descriptor in a process's FD table holds, the user-buffer
// translation that turns a virtual range in the caller's address space
// into kernel-visible byte slices, and the concrete File implementations
// (OSInode lives in the fs package; Stdin/Stdout/Pipe live here).
// Grounded on original_source/os/src/fs/{mod,file_descriptor,stdio}.rs
// and biscuit's fd/fd.go for the Go idiom of a capability interface plus
// a per-process slice-backed table.
package fd

import "github.com/jason-hue/rvos/defs"

// Whence matches lseek's SEEK_SET/SEEK_CUR/SEEK_END, spec.md §3 "seek".
type Whence int

const (
	SeekSet Whence = iota
	SeekCur
	SeekEnd
)

// File is the capability every FD table slot holds (spec.md §3 "File
// descriptor"). Not every concrete type implements every operation
// meaningfully — Stdin.Write and Pipe.Seek are errors, not panics, the
// same way the Rust trait's default methods return false/None rather
// than being required overrides.
type File interface {
	Readable() bool
	Writable() bool
	Read(buf UserBuffer) (int, defs.Err_t)
	Write(buf UserBuffer) (int, defs.Err_t)
	Seek(whence Whence, offset int64) (int64, defs.Err_t)
	Name() string
}

// Dirent is one directory entry as getdents reports it.
type Dirent struct {
	Name string
	Ino  uint64
	Type uint8
}

// Stat is the subset of file metadata spec.md's stat syscall reports.
type Stat struct {
	Ino   uint64
	Mode  uint32
	Size  int64
	IsDir bool
}

// Statter is implemented by Files that can report metadata (OSInode).
type Statter interface {
	Stat() (Stat, defs.Err_t)
}

// DirReader is implemented by Files open on a directory.
type DirReader interface {
	Getdents(out []Dirent) (int, defs.Err_t)
}

// WholeFileReader is implemented by Files the kernel can read directly
// into kernel memory, bypassing the UserBuffer translation — used by
// exec to load an ELF image, which has no calling process's address
// space to translate through yet. Grounded on
// original_source/os/src/fs/inode.rs's OSInode::read_all.
type WholeFileReader interface {
	ReadAll() ([]byte, defs.Err_t)
}
