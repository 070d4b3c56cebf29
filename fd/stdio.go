package fd

import (
	"github.com/jason-hue/rvos/defs"
	"github.com/jason-hue/rvos/sbi"
)

// Stdin wraps the SBI console for reading, spinning on GetChar's -1
// ("no character yet") the way original_source's Stdin::read does —
// this is one of spec.md's listed suspension points. Read itself loops
// until a byte is available and then returns exactly that one byte.
type Stdin struct{}

func (Stdin) Readable() bool { return true }
func (Stdin) Writable() bool { return false }

func (Stdin) Read(buf UserBuffer) (int, defs.Err_t) {
	if buf.Len == 0 {
		return 0, 0
	}
	for {
		c := sbi.GetChar()
		if c == -1 {
			continue
		}
		return buf.WriteFromKernel([]byte{byte(c)}), 0
	}
}

func (Stdin) Write(UserBuffer) (int, defs.Err_t) { return 0, -defs.EBADF }
func (Stdin) Seek(Whence, int64) (int64, defs.Err_t) { return 0, -defs.EINVAL }
func (Stdin) Name() string                           { return "stdin" }

// Stdout wraps the SBI console for writing.
type Stdout struct{}

func (Stdout) Readable() bool { return false }
func (Stdout) Writable() bool { return true }

func (Stdout) Read(UserBuffer) (int, defs.Err_t) { return 0, -defs.EBADF }

func (Stdout) Write(buf UserBuffer) (int, defs.Err_t) {
	tmp := make([]byte, buf.Len)
	n := buf.ReadIntoKernel(tmp)
	for _, c := range tmp[:n] {
		sbi.PutChar(c)
	}
	return n, 0
}

func (Stdout) Seek(Whence, int64) (int64, defs.Err_t) { return 0, -defs.EINVAL }
func (Stdout) Name() string                           { return "stdout" }
