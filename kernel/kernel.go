// Package kernel wires together every layer below it into one running
// system: the frame allocator, the kernel address space, the scheduler's
// World, the syscall dispatcher, and (optionally) a mounted FAT32 volume.
// It also owns the trap-handling glue a real board's trampoline would
// call into, and the kernel's fatal-error path. Grounded on
// original_source/os/src/main.rs's start_main sequence and
// os/src/trap/mod.rs's trap_handler, translated into Go: this module has
// no assembly trampoline or RISC-V core of its own, so the privilege-
// boundary crossing main.rs performs with `csrw satp`/`sret` is modeled
// here as ordinary Go function calls across the same set of steps.
package kernel

import (
	"fmt"

	"github.com/jason-hue/rvos/blockdev"
	"github.com/jason-hue/rvos/fs"
	"github.com/jason-hue/rvos/mem"
	"github.com/jason-hue/rvos/proc"
	"github.com/jason-hue/rvos/sbi"
	"github.com/jason-hue/rvos/syscall"
	"github.com/jason-hue/rvos/trap"
	"github.com/jason-hue/rvos/vm"
)

// BootConfig is everything Boot needs from whatever is standing in for
// the linker/bootloader on this board: the section boundaries the kernel
// image publishes (spec.md §6 "Boot environment"), the physical frame
// range available after the kernel image, an optional block device to
// mount as the root filesystem, the set of app images available to
// exec/fork-exec (this module's replacement for original_source's
// embedded `_num_app` archive, since Go has no equivalent linker step),
// and which of those is the first process.
type BootConfig struct {
	Sections   vm.Sections
	FrameStart mem.Ppn_t
	FrameEnd   mem.Ppn_t
	Device     blockdev.Device
	Apps       map[string][]byte
	InitApp    string
}

// Kernel bundles the live state cmd/kernel's entrypoint drives: the
// scheduler World, the syscall dispatcher, the tick timer, the mounted
// filesystem (nil if BootConfig.Device was nil), and the app table
// SYS_LISTAPPS reports on.
type Kernel struct {
	World *proc.World
	Disp  *syscall.Dispatcher
	Timer *trap.Timer
	FS    *fs.FileSystem
	Apps  map[string][]byte
	Init  *proc.Pcb
}

// Boot performs the steps original_source's start_main runs before
// task::run_tasks: build the frame pool, the kernel address space and
// its shared trampoline page, the scheduler World, optionally mount a
// filesystem, and load the init process. It stops short of
// enable_timer_interrupt/set_next_trigger, which are board-level SBI
// calls this module has no hardware to issue (the SBI surface this module
// models is the console and shutdown).
func Boot(cfg BootConfig) (*Kernel, error) {
	mem.InitFrameAllocator(cfg.FrameStart, cfg.FrameEnd)
	alloc := mem.FrameAllocatorGlobal

	tramp, ok := alloc.Alloc()
	if !ok {
		return nil, fmt.Errorf("kernel: out of memory allocating the trampoline page")
	}

	kernelAS := vm.NewKernel(alloc, cfg.Sections, tramp.Ppn)

	world := &proc.World{
		Alloc:         alloc,
		Kernel:        kernelAS,
		TrampolinePpn: tramp.Ppn,
		Ready:         proc.NewReadyQueue(),
		Processor:     proc.NewProcessor(),
		Pids:          proc.NewPidAllocator(),
	}

	var fsys *fs.FileSystem
	if cfg.Device != nil {
		mounted, err := fs.Mount(cfg.Device)
		if err != nil {
			return nil, fmt.Errorf("kernel: mount: %w", err)
		}
		fsys = mounted
	}

	elfData, ok := cfg.Apps[cfg.InitApp]
	if !ok {
		return nil, fmt.Errorf("kernel: init app %q not present in app table", cfg.InitApp)
	}
	initProc, err := world.NewInitProc(elfData)
	if err != nil {
		return nil, fmt.Errorf("kernel: loading init process: %w", err)
	}
	initProc.Name = cfg.InitApp

	timer := &trap.Timer{}
	disp := &syscall.Dispatcher{World: world, Timer: timer, Init: initProc}
	if fsys != nil {
		disp.FS = fsys
	}

	k := &Kernel{
		World: world,
		Disp:  disp,
		Timer: timer,
		FS:    fsys,
		Apps:  cfg.Apps,
		Init:  initProc,
	}
	disp.Apps = k
	return k, nil
}

// Panic reports a fatal kernel invariant violation on the console and
// then panics, mirroring biscuit's bare `panic(...)` convention (spec.md
// "kernel-to-kernel traps route to a fatal handler... not designed to
// survive them" — there is no recover-and-continue anywhere in this
// module).
func Panic(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	for i := 0; i < len(msg); i++ {
		sbi.PutChar(msg[i])
	}
	sbi.PutChar('\n')
	panic(msg)
}
