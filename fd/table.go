package fd

import "github.com/jason-hue/rvos/defs"

// Table is a process's file-descriptor table: a slice of slots, each
// either nil (closed) or a File capability. Grounded on biscuit's
// fd/fd.go Fd_t table idiom (slice indexed by small integer, nil hole on
// close, linear scan for the lowest free slot on open).
type Table struct {
	slots []File
}

// NewTable builds a table pre-populated with stdin/stdout/stderr, the
// fixed {0,1,2} layout every new process and every exec gets (spec.md
// §4.4 exec: "reset FD table to {stdin, stdout, stderr}").
func NewTable() *Table {
	return &Table{slots: []File{Stdin{}, Stdout{}, Stdout{}}}
}

// Get returns the File at fd, or (nil, -EBADF) if fd is out of range or
// closed.
func (t *Table) Get(fdNum int) (File, defs.Err_t) {
	if fdNum < 0 || fdNum >= len(t.slots) || t.slots[fdNum] == nil {
		return nil, -defs.EBADF
	}
	return t.slots[fdNum], 0
}

// Insert places f in the lowest-numbered free slot, growing the table if
// none is free, and returns the slot number.
func (t *Table) Insert(f File) int {
	for i, s := range t.slots {
		if s == nil {
			t.slots[i] = f
			return i
		}
	}
	t.slots = append(t.slots, f)
	return len(t.slots) - 1
}

// Close removes fd's capability, making the slot reusable.
func (t *Table) Close(fdNum int) defs.Err_t {
	if fdNum < 0 || fdNum >= len(t.slots) || t.slots[fdNum] == nil {
		return -defs.EBADF
	}
	t.slots[fdNum] = nil
	return 0
}

// Reset discards every entry and reinstalls stdin/stdout/stderr, used on
// exec.
func (t *Table) Reset() {
	t.slots = []File{Stdin{}, Stdout{}, Stdout{}}
}

// Clone copies the slot slice (capabilities are shared, not duplicated —
// the same sharing fork() gives Unix FD tables) for a freshly forked
// child.
func (t *Table) Clone() *Table {
	cp := make([]File, len(t.slots))
	copy(cp, t.slots)
	return &Table{slots: cp}
}
