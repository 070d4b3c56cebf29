// Command kernel is the board image's entrypoint: it boots the kernel
// exactly as original_source/os/src/main.rs's start_main does (report
// section boundaries, bring up the scheduler, load the init process,
// list available apps) and then starts the run loop.
//
// What it deliberately does NOT do is execute RISC-V user code: that
// requires either real hardware or a cycle-accurate emulator underneath
// it, and trap delivery on real hardware happens through the trampoline
// assembly spec.md §4.3 describes ("implement by placing it in its own
// linker section... controlling its VA via the linker script") — code
// this portable Go module has no way to assemble or run. A real board's
// boot glue supplies a kernel.TrapSource backed by the trampoline; this
// entrypoint demonstrates the wiring with one that only proves the
// scheduler drains its queue, the same role original_source's
// frame_allocator_test/heap_test sanity checks play in main.rs before
// the real workload starts.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jason-hue/rvos/blockdev"
	"github.com/jason-hue/rvos/defs"
	"github.com/jason-hue/rvos/kernel"
	"github.com/jason-hue/rvos/mem"
	"github.com/jason-hue/rvos/proc"
	"github.com/jason-hue/rvos/trap"
	"github.com/jason-hue/rvos/vm"
)

// boardSections describes this board's image layout. A real build gets
// these from the linker script (stext/etext/... symbols); lacking one,
// this entrypoint uses a fixed layout sized generously for a small
// teaching kernel.
var boardSections = vm.Sections{
	Stext: 0x80200000, Etext: 0x80210000,
	Srodata: 0x80210000, Erodata: 0x80218000,
	Sdata: 0x80218000, Ebss: 0x80228000,
	Ekernel: 0x80228000, MemoryEnd: 0x80800000,
}

func loadApps(dir string) (map[string][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	apps := make(map[string][]byte, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		name := e.Name()
		apps[name[:len(name)-len(filepath.Ext(name))]] = data
	}
	return apps, nil
}

// smokeTestSource proves the scheduler can take a task off the
// processor cleanly: it yields the task once, then exits it, standing in
// for the hardware trap source a real board would wire in RunTasks's
// place.
type smokeTestSource struct{ yielded bool }

func (s *smokeTestSource) NextTrap(p *proc.Pcb) (trap.Scause, [3]uint64, uintptr) {
	tc := p.TrapContext()
	if !s.yielded {
		s.yielded = true
		tc.X[trap.RegA7] = defs.SYS_YIELD
		return trap.UserEnvCall, [3]uint64{}, 0
	}
	tc.X[trap.RegA7] = defs.SYS_EXIT
	return trap.UserEnvCall, [3]uint64{0}, 0
}

func main() {
	appsDir := flag.String("apps", "", "directory of app ELF images")
	initApp := flag.String("init", "initproc", "name of the init app")
	image := flag.String("image", "", "FAT32 disk image to mount as root (optional)")
	flag.Parse()

	if *appsDir == "" {
		fmt.Fprintln(os.Stderr, "kernel: -apps is required")
		os.Exit(1)
	}

	fmt.Printf("[kernel] .text [%#x, %#x)\n", boardSections.Stext, boardSections.Etext)
	fmt.Printf("[kernel] .rodata [%#x, %#x)\n", boardSections.Srodata, boardSections.Erodata)
	fmt.Printf("[kernel] .data+.bss [%#x, %#x)\n", boardSections.Sdata, boardSections.Ebss)
	fmt.Printf("[kernel] frame pool [%#x, %#x)\n", boardSections.Ekernel, boardSections.MemoryEnd)

	apps, err := loadApps(*appsDir)
	if err != nil {
		kernel.Panic("kernel: loading apps from %s: %v", *appsDir, err)
	}
	if _, ok := apps[*initApp]; !ok {
		kernel.Panic("kernel: init app %q not found in %s", *initApp, *appsDir)
	}

	cfg := kernel.BootConfig{
		Sections:   boardSections,
		FrameStart: mem.Ppn_t(boardSections.Ekernel) >> 12,
		FrameEnd:   mem.Ppn_t(boardSections.MemoryEnd) >> 12,
		Apps:       apps,
		InitApp:    *initApp,
	}
	if *image != "" {
		info, err := os.Stat(*image)
		if err != nil {
			kernel.Panic("kernel: stat disk image %s: %v", *image, err)
		}
		blocks := int(info.Size() / blockdev.SectorSize)
		dev, err := blockdev.OpenFile(*image, blocks)
		if err != nil {
			kernel.Panic("kernel: opening disk image %s: %v", *image, err)
		}
		cfg.Device = dev
	}

	k, err := kernel.Boot(cfg)
	if err != nil {
		kernel.Panic("kernel: boot failed: %v", err)
	}
	fmt.Printf("[kernel] initproc pid %d\n", k.Init.Pid)
	fmt.Printf("[kernel] apps: %s\n", k.ListApps(0))

	k.RunTasks(&smokeTestSource{})
	fmt.Println("[kernel] run queue drained, shutting down")
}
