// Package defs holds the error-code and open-flag vocabulary shared by the
// syscall, fs, and fd layers. Biscuit keeps this kind of shared taxonomy in
// its own `defs` package (see device.go's Mkdev/Unmkdev); this module does
// the same.
package defs

/// Err_t is a negative errno-shaped result. Zero means success; a negative
/// value is returned verbatim to user space in a0 by the syscall dispatcher.
type Err_t int

const (
	EPERM        Err_t = 1
	ENOENT       Err_t = 2
	ECHILD       Err_t = 10
	EIO          Err_t = 5
	ENOEXEC      Err_t = 8
	EBADF        Err_t = 9
	ENOMEM       Err_t = 12
	EFAULT       Err_t = 14
	EEXIST       Err_t = 17
	ENOTDIR      Err_t = 20
	EISDIR       Err_t = 21
	EINVAL       Err_t = 22
	ENOSPC       Err_t = 28
	ENAMETOOLONG Err_t = 36
	ENOTEMPTY    Err_t = 39
	ENOSYS       Err_t = 38
)

// Open flags, per spec.md §4.7.
const (
	O_RDONLY    = 0x0
	O_WRONLY    = 0x1
	O_RDWR      = 0x2
	O_CREAT     = 0x40
	O_TRUNC     = 0x400
	O_DIRECTORY = 0x200000
)

// Tid_t identifies a kernel thread of control. This kernel has exactly one
// thread per process, so it is interchangeable with Pid_t, but the two are
// kept distinct to mirror biscuit's Tid_t/pid split and to leave room for
// the thread/process distinction without reshaping the call signatures
// that take a Tid_t today.
type Tid_t int

// Pid_t identifies a process.
type Pid_t int

// Syscall numbers, per spec.md §6.
const (
	SYS_SHUTDOWN  = 48
	SYS_OPEN      = 56
	SYS_CLOSE     = 57
	SYS_READ      = 63
	SYS_WRITE     = 64
	SYS_EXIT      = 93
	SYS_LISTAPPS  = 100
	SYS_YIELD     = 124
	SYS_GET_TIME  = 169
	SYS_GETPID    = 172
	SYS_SBRK      = 214
	SYS_FORK      = 220
	SYS_EXEC      = 221
	SYS_WAITPID   = 260
	SYS_GETCHAR   = 520
)
