package kernel

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/jason-hue/rvos/proc"
	"github.com/jason-hue/rvos/stats"
)

// ListApps implements syscall.Lister, backing SYS_LISTAPPS. mode 0 lists
// the names of every app image this kernel could exec, sorted and
// newline-joined (the runtime stand-in for original_source's boot-time
// loader::list_apps console dump). mode 1 dumps a pprof-format profile of
// every live process's accumulated ticks, per SPEC_FULL's domain-stack
// wiring of github.com/google/pprof.
func (k *Kernel) ListApps(mode int) []byte {
	if mode == 1 {
		return k.profileDump()
	}
	names := make([]string, 0, len(k.Apps))
	for name := range k.Apps {
		names = append(names, name)
	}
	sort.Strings(names)
	return []byte(strings.Join(names, "\n"))
}

// liveProcesses collects every process this kernel still knows about:
// whatever is queued to run, plus whatever is presently running. Reaped
// zombies are already folded into their parent's Accnt by
// proc.World.WaitPid, so this is a complete usage picture without
// double-counting.
func (k *Kernel) liveProcesses() []*proc.Pcb {
	procs := k.World.Ready.All()
	if cur := k.World.Processor.Current(); cur != nil {
		procs = append(procs, cur)
	}
	return procs
}

func (k *Kernel) profileDump() []byte {
	procs := k.liveProcesses()
	usages := make([]stats.ProcUsage, 0, len(procs))
	for _, p := range procs {
		user, sys := p.Accnt.Snapshot()
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("pid%d", p.Pid)
		}
		usages = append(usages, stats.ProcUsage{Pid: p.Pid, Name: name, UserTicks: user, SysTicks: sys})
	}
	var buf bytes.Buffer
	if err := stats.Write(&buf, usages); err != nil {
		return nil
	}
	return buf.Bytes()
}
