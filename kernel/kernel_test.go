package kernel

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/jason-hue/rvos/config"
	"github.com/jason-hue/rvos/defs"
	"github.com/jason-hue/rvos/mem"
	"github.com/jason-hue/rvos/proc"
	"github.com/jason-hue/rvos/trap"
	"github.com/jason-hue/rvos/vm"
)

// buildMiniELF is the same minimal single-segment ELF builder used by
// proc/lifecycle_test.go and syscall/dispatch_test.go, duplicated here
// since it is unexported in both.
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

func bootTestKernel(t *testing.T, frameBase uint64) *Kernel {
	t.Helper()
	elf := buildMiniELF(0x10000, []byte{0x13, 0x00, 0x00, 0x00})
	k, err := Boot(BootConfig{
		Sections: vm.Sections{
			Stext: 0x1000, Etext: 0x2000,
			Srodata: 0x2000, Erodata: 0x2000,
			Sdata: 0x2000, Ebss: 0x3000,
			Ekernel: 0x3000, MemoryEnd: 0x3000,
		},
		FrameStart: mem.Ppn_t(frameBase),
		FrameEnd:   mem.Ppn_t(frameBase) + 512,
		Apps:       map[string][]byte{"initproc": elf},
		InitApp:    "initproc",
	})
	if err != nil {
		t.Fatalf("Boot: %v", err)
	}
	return k
}

func TestBootWiresInitProcReady(t *testing.T) {
	k := bootTestKernel(t, 0x90000)
	if k.World.Ready.Len() != 1 {
		t.Fatalf("expected initproc on the ready queue, got %d", k.World.Ready.Len())
	}
	if k.Init.Name != "initproc" {
		t.Fatalf("expected init process to be named initproc, got %q", k.Init.Name)
	}
	if k.Disp.Apps == nil {
		t.Fatal("dispatcher should have a Lister wired for SYS_LISTAPPS")
	}
}

func TestHandleTrapDispatchesSyscallAndWritesA0(t *testing.T) {
	k := bootTestKernel(t, 0x91000)
	p := k.World.Processor.RunNext(k.World.Ready)
	tc := p.TrapContext()
	tc.X[trap.RegA7] = defs.SYS_GETPID

	k.HandleTrap(trap.UserEnvCall, [3]uint64{}, 0)

	if tc.X[trap.RegA0] != uint64(p.Pid) {
		t.Fatalf("expected a0 = pid %d, got %d", p.Pid, tc.X[trap.RegA0])
	}
	if k.World.Processor.Current() != p {
		t.Fatal("getpid should not move the task off the processor")
	}
}

func TestHandleTrapTimerYieldsAndTicks(t *testing.T) {
	k := bootTestKernel(t, 0x92000)
	p := k.World.Processor.RunNext(k.World.Ready)

	k.HandleTrap(trap.SupervisorTimer, [3]uint64{}, 0)

	if k.World.Processor.Current() != nil {
		t.Fatal("a timer trap should yield the running task")
	}
	if k.World.Ready.Len() != 1 {
		t.Fatalf("yielded task should return to the ready queue, got len %d", k.World.Ready.Len())
	}
	if k.Timer.Ticks() != 1 {
		t.Fatalf("expected 1 tick, got %d", k.Timer.Ticks())
	}
	if u, _ := p.Accnt.Snapshot(); u != 1 {
		t.Fatalf("expected 1 user tick credited, got %d", u)
	}
}

func TestHandleTrapIllegalInstructionReapsTask(t *testing.T) {
	k := bootTestKernel(t, 0x93000)
	p := k.World.Processor.RunNext(k.World.Ready)

	k.HandleTrap(trap.IllegalInstruction, [3]uint64{}, 0)

	if k.World.Processor.Current() != nil {
		t.Fatal("a killed task should be taken off the processor")
	}
	if p.Status != proc.Zombie {
		t.Fatalf("expected Zombie status, got %v", p.Status)
	}
	if p.ExitCode != -3 {
		t.Fatalf("expected exit code -3, got %d", p.ExitCode)
	}
}

// scriptedSource feeds one recorded trap per call, setting the syscall
// number/args into the trap context the way user-mode ecall execution
// would have, before HandleTrap ever reads them back out.
type scriptedSource struct {
	steps []func(tc *trap.TrapContext) (trap.Scause, [3]uint64, uintptr)
	i     int
}

func (s *scriptedSource) NextTrap(p *proc.Pcb) (trap.Scause, [3]uint64, uintptr) {
	step := s.steps[s.i]
	s.i++
	return step(p.TrapContext())
}

func syscallStep(num int, args [3]uint64) func(*trap.TrapContext) (trap.Scause, [3]uint64, uintptr) {
	return func(tc *trap.TrapContext) (trap.Scause, [3]uint64, uintptr) {
		tc.X[trap.RegA7] = uint64(num)
		return trap.UserEnvCall, args, 0
	}
}

func TestRunTasksDrainsReadyQueueAfterYieldThenExit(t *testing.T) {
	k := bootTestKernel(t, 0x94000)
	src := &scriptedSource{steps: []func(*trap.TrapContext) (trap.Scause, [3]uint64, uintptr){
		syscallStep(defs.SYS_YIELD, [3]uint64{}),
		syscallStep(defs.SYS_EXIT, [3]uint64{0}),
	}}

	k.RunTasks(src)

	if k.World.Ready.Len() != 0 {
		t.Fatalf("ready queue should be drained, got %d", k.World.Ready.Len())
	}
	if k.World.Processor.Current() != nil {
		t.Fatal("processor should be idle once every task has exited")
	}
}

func TestListAppsModeZeroListsSortedNames(t *testing.T) {
	k := bootTestKernel(t, 0x95000)
	k.Apps["zshell"] = []byte("b")
	got := string(k.ListApps(0))
	want := "initproc\nzshell"
	if got != want {
		t.Fatalf("ListApps(0) = %q, want %q", got, want)
	}
}

func TestListAppsModeOneProducesNonEmptyProfile(t *testing.T) {
	k := bootTestKernel(t, 0x96000)
	k.World.Processor.RunNext(k.World.Ready)
	out := k.ListApps(1)
	if len(out) == 0 {
		t.Fatal("expected a non-empty pprof dump")
	}
}
