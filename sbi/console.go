// Package sbi models the Supervisor Binary Interface calls this kernel
// relies on: console I/O and shutdown (spec.md's "SBI" references
// throughout §4). There is no timer call here; trap.Timer counts ticks
// instead. On real hardware these are ecalls trapping
// to M-mode firmware; there is no M-mode firmware under this module, so
// Console is an interface the boot-time wiring (kernel package) supplies
// a concrete backend for — a real UART driver on hardware, a
// byte-channel fake in tests. Grounded on
// original_source/os/src/sbi.rs's console_putchar/console_getchar and
// biscuit's house style of a small interface plus a swappable backend
// for anything that ultimately talks to a device.
package sbi

// Console is the legacy SBI console extension: one character in, one
// character out, -1 meaning "nothing available" for GetChar (matching
// the real SBI console_getchar ABI, which returns -1 on no input rather
// than blocking).
type Console interface {
	PutChar(c byte)
	GetChar() int
}

var console Console

// SetConsole installs the backend boot wiring constructed. Must be
// called before PutChar/GetChar.
func SetConsole(c Console) { console = c }

// PutChar writes one byte to the console.
func PutChar(c byte) { console.PutChar(c) }

// GetChar reads one byte, or -1 if none is available.
func GetChar() int { return console.GetChar() }

// Shutdown is the SBI system-reset call. failure, when true, requests a
// failure-coded shutdown (spec.md SYS_SHUTDOWN's 0/1 argument); real
// hardware never returns from this call, so ShutdownFunc lets the boot
// wiring decide what "doesn't return" means outside QEMU (os.Exit, a
// panic, a test hook).
var ShutdownFunc func(failure bool)

func Shutdown(failure bool) {
	if ShutdownFunc != nil {
		ShutdownFunc(failure)
	}
}
