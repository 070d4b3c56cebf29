package fd

import (
	"testing"

	"github.com/jason-hue/rvos/mem"
	"github.com/jason-hue/rvos/sv39"
	"github.com/jason-hue/rvos/vm"
)

func freshAS(t *testing.T) *vm.AddressSpace {
	t.Helper()
	mem.InitFrameAllocator(0x40000, 0x40000+32)
	as, ok := vm.New(mem.FrameAllocatorGlobal)
	if !ok {
		t.Fatal("address space alloc failed")
	}
	if !as.MapFramed(0x1000, 0x3000, sv39.R|sv39.W|sv39.U) {
		t.Fatal("map failed")
	}
	return as
}

func TestPipeRoundTrip(t *testing.T) {
	as := freshAS(t)
	rd, wr := NewPipe()

	as.CopyOut(0x1000, []byte("hello"))
	n, err := wr.Write(UserBuffer{AS: as, Va: 0x1000, Len: 5})
	if err != 0 || n != 5 {
		t.Fatalf("write: n=%d err=%d", n, err)
	}

	n, err = rd.Read(UserBuffer{AS: as, Va: 0x2000, Len: 5})
	if err != 0 || n != 5 {
		t.Fatalf("read: n=%d err=%d", n, err)
	}
	var got [5]byte
	as.CopyIn(0x2000, got[:])
	if string(got[:]) != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestPipeReadEmptyNonBlocking(t *testing.T) {
	as := freshAS(t)
	rd, _ := NewPipe()
	n, err := rd.Read(UserBuffer{AS: as, Va: 0x1000, Len: 8})
	if err != 0 || n != 0 {
		t.Fatalf("expected (0, 0) on empty pipe, got (%d, %d)", n, err)
	}
}

func TestPipeWriteAfterReadCloseIsError(t *testing.T) {
	as := freshAS(t)
	rd, wr := NewPipe()
	rd.Close()
	as.CopyOut(0x1000, []byte("x"))
	_, err := wr.Write(UserBuffer{AS: as, Va: 0x1000, Len: 1})
	if err == 0 {
		t.Fatal("expected error writing to a pipe whose read end is closed")
	}
}

func TestTableInsertGetCloseReusesSlot(t *testing.T) {
	tbl := NewTable()
	rd, _ := NewPipe()
	n := tbl.Insert(rd)
	if n != 3 {
		t.Fatalf("expected first free slot 3 (after stdin/stdout/stderr), got %d", n)
	}
	if _, err := tbl.Get(n); err != 0 {
		t.Fatal("expected to find inserted file")
	}
	if err := tbl.Close(n); err != 0 {
		t.Fatal("close should succeed")
	}
	if _, err := tbl.Get(n); err == 0 {
		t.Fatal("expected EBADF after close")
	}
	wr2, _ := NewPipe()
	if m := tbl.Insert(wr2); m != n {
		t.Fatalf("expected closed slot %d reused, got %d", n, m)
	}
}

func TestTableResetRestoresStdio(t *testing.T) {
	tbl := NewTable()
	other, _ := NewPipe()
	tbl.Insert(other)
	tbl.Reset()
	if len(tbl.slots) != 3 {
		t.Fatalf("expected 3 slots after reset, got %d", len(tbl.slots))
	}
}
