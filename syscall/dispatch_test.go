package syscall

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/jason-hue/rvos/config"
	"github.com/jason-hue/rvos/defs"
	"github.com/jason-hue/rvos/fd"
	"github.com/jason-hue/rvos/mem"
	"github.com/jason-hue/rvos/proc"
	"github.com/jason-hue/rvos/sbi"
	"github.com/jason-hue/rvos/trap"
	"github.com/jason-hue/rvos/vm"
)

func buildMiniELF(vaddr uint64, code []byte) []byte {
	const ehsize = 64
	const phentsize = 56
	var buf bytes.Buffer
	buf.Write([]byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0})
	le := binary.LittleEndian
	wu16 := func(v uint16) { var b [2]byte; le.PutUint16(b[:], v); buf.Write(b[:]) }
	wu32 := func(v uint32) { var b [4]byte; le.PutUint32(b[:], v); buf.Write(b[:]) }
	wu64 := func(v uint64) { var b [8]byte; le.PutUint64(b[:], v); buf.Write(b[:]) }
	wu16(2)
	wu16(243)
	wu32(1)
	wu64(vaddr)
	wu64(ehsize)
	wu64(0)
	wu32(0)
	wu16(ehsize)
	wu16(phentsize)
	wu16(1)
	wu16(0)
	wu16(0)
	wu16(0)
	dataOff := uint64(ehsize + phentsize)
	wu32(1)
	wu32(5)
	wu64(dataOff)
	wu64(vaddr)
	wu64(vaddr)
	wu64(uint64(len(code)))
	wu64(uint64(len(code)))
	wu64(uint64(config.PGSIZE))
	buf.Write(code)
	return buf.Bytes()
}

func freshWorld(t *testing.T) (*proc.World, []byte) {
	t.Helper()
	mem.InitFrameAllocator(0x60000, 0x60000+512)
	alloc := mem.FrameAllocatorGlobal
	tramp, ok := alloc.Alloc()
	if !ok {
		t.Fatal("trampoline alloc failed")
	}
	kernel := vm.NewKernel(alloc, vm.Sections{
		Stext: 0x1000, Etext: 0x2000,
		Srodata: 0x2000, Erodata: 0x2000,
		Sdata: 0x2000, Ebss: 0x3000,
		Ekernel: 0x3000, MemoryEnd: 0x3000,
	}, tramp.Ppn)
	w := &proc.World{
		Alloc:         alloc,
		Kernel:        kernel,
		TrampolinePpn: tramp.Ppn,
		Ready:         proc.NewReadyQueue(),
		Processor:     proc.NewProcessor(),
		Pids:          proc.NewPidAllocator(),
	}
	elf := buildMiniELF(0x10000, []byte{0x13, 0x00, 0x00, 0x00})
	return w, elf
}

// fakeWholeFile is a fd.File + fd.WholeFileReader backed by a byte slice,
// standing in for an OSInode in tests that do not need a real FAT32
// filesystem to exercise the syscall layer's exec path.
type fakeWholeFile struct{ data []byte }

func (f *fakeWholeFile) Readable() bool { return true }
func (f *fakeWholeFile) Writable() bool { return false }
func (f *fakeWholeFile) Read(buf fd.UserBuffer) (int, defs.Err_t) {
	return buf.WriteFromKernel(f.data), 0
}
func (f *fakeWholeFile) Write(fd.UserBuffer) (int, defs.Err_t) { return 0, -defs.EBADF }
func (f *fakeWholeFile) Seek(w fd.Whence, off int64) (int64, defs.Err_t) { return 0, 0 }
func (f *fakeWholeFile) Name() string                  { return "fake" }
func (f *fakeWholeFile) ReadAll() ([]byte, defs.Err_t) { return f.data, 0 }

type fakeFS struct {
	files map[string][]byte
}

func (f *fakeFS) Open(path string, flags int) (fd.File, defs.Err_t) {
	data, ok := f.files[path]
	if !ok {
		return nil, -defs.ENOENT
	}
	return &fakeWholeFile{data: data}, 0
}

func TestDispatchGetpidAndYield(t *testing.T) {
	w, elf := freshWorld(t)
	p, err := w.NewInitProc(elf)
	if err != nil {
		t.Fatalf("NewInitProc: %v", err)
	}
	w.Processor.RunNext(w.Ready)

	d := &Dispatcher{World: w, Timer: &trap.Timer{}, Init: p}
	if got := d.Dispatch(p, defs.SYS_GETPID, [3]uint64{}); got != int64(p.Pid) {
		t.Fatalf("getpid = %d, want %d", got, p.Pid)
	}
	if got := d.Dispatch(p, defs.SYS_YIELD, [3]uint64{}); got != 0 {
		t.Fatalf("yield should return 0, got %d", got)
	}
	if w.Ready.Len() != 1 {
		t.Fatal("yield should put the task back on the ready queue")
	}
}

type discardConsole struct{ out []byte }

func (c *discardConsole) PutChar(b byte) { c.out = append(c.out, b) }
func (c *discardConsole) GetChar() int   { return -1 }

func TestDispatchWriteToStdout(t *testing.T) {
	sbi.SetConsole(&discardConsole{})
	w, elf := freshWorld(t)
	p, _ := w.NewInitProc(elf)
	w.Processor.RunNext(w.Ready)
	d := &Dispatcher{World: w, Timer: &trap.Timer{}, Init: p}

	buf := uintptr(0x10000 + config.PGSIZE*2)
	p.AS.MapFramed(buf, buf+0x1000, 0)
	p.AS.WriteAt(buf, []byte("hi"))
	got := d.Dispatch(p, defs.SYS_WRITE, [3]uint64{1, uint64(buf), 2})
	if got != 2 {
		t.Fatalf("write should report 2 bytes written, got %d", got)
	}
}

func TestDispatchUnknownSyscallReturnsENOSYS(t *testing.T) {
	w, elf := freshWorld(t)
	p, _ := w.NewInitProc(elf)
	w.Processor.RunNext(w.Ready)
	d := &Dispatcher{World: w, Timer: &trap.Timer{}, Init: p}
	got := d.Dispatch(p, 99999, [3]uint64{})
	if got != int64(-defs.ENOSYS) {
		t.Fatalf("expected -ENOSYS, got %d", got)
	}
}

func TestDispatchExecReplacesImage(t *testing.T) {
	w, elf := freshWorld(t)
	p, _ := w.NewInitProc(elf)
	w.Processor.RunNext(w.Ready)

	elf2 := buildMiniELF(0x20000, []byte{0x13, 0x00, 0x00, 0x00})
	fs := &fakeFS{files: map[string][]byte{"/prog": elf2}}
	d := &Dispatcher{World: w, Timer: &trap.Timer{}, FS: fs, Init: p}

	pathVa := uintptr(0x10000 + config.PGSIZE*2)
	p.AS.MapFramed(pathVa, pathVa+0x1000, 0)
	p.AS.WriteAt(pathVa, append([]byte("/prog"), 0))

	got := d.Dispatch(p, defs.SYS_EXEC, [3]uint64{uint64(pathVa), 0, 0})
	if got != 0 {
		t.Fatalf("exec should return 0 on success, got %d", got)
	}
	if p.TrapContext().Sepc != 0x20000 {
		t.Fatalf("expected new entry 0x20000, got %#x", p.TrapContext().Sepc)
	}
}
