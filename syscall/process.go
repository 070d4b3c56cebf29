package syscall

import (
	"github.com/jason-hue/rvos/defs"
	"github.com/jason-hue/rvos/proc"
)

// sysSbrk adjusts p's program break, grounded on
// original_source/os/src/syscall/process.rs's sys_sbrk (there returning
// -1 on failure; here 0, see proc.World.GrowBrk's doc comment).
func (d *Dispatcher) sysSbrk(p *proc.Pcb, delta int) int64 {
	return int64(d.World.GrowBrk(p, delta))
}

// sysExec reads the NUL-terminated path out of the caller's address
// space, loads it through the filesystem, and replaces p's image in
// place. Grounded on sys_exec, generalized from the original's
// loader-embedded app table to a real filesystem lookup (spec.md §4.4).
func (d *Dispatcher) sysExec(p *proc.Pcb, pathVa uintptr) int64 {
	if d.FS == nil {
		return int64(-defs.ENOSYS)
	}
	path, err := p.AS.CopyInString(pathVa, 256)
	if err != 0 {
		return int64(err)
	}
	f, err := d.FS.Open(path, defs.O_RDONLY)
	if err != 0 {
		return int64(err)
	}
	elfData, rerr := readWholeFile(f)
	if rerr != 0 {
		return int64(rerr)
	}
	if execErr := d.World.Exec(p, elfData); execErr != nil {
		return int64(-defs.ENOEXEC)
	}
	return 0
}

// sysWaitPid implements waitpid: pid == -1 waits for any child. A
// not-yet-exited match is reported as -2 (matching original_source's
// sys_waitpid, which returns -2 for "keep polling" rather than blocking —
// spec.md §4.3's "no true in-kernel blocking sleep": the caller is
// expected to yield and call again). No matching child at all is -ECHILD.
func (d *Dispatcher) sysWaitPid(p *proc.Pcb, pid int, statusVa uintptr) int64 {
	hasAny := pid == -1
	if !hasAny {
		found := false
		for _, c := range p.Children {
			if c.Pid == pid {
				found = true
				break
			}
		}
		if !found {
			return int64(-defs.ECHILD)
		}
	} else if len(p.Children) == 0 {
		return int64(-defs.ECHILD)
	}

	childPid, exitCode, found := d.World.WaitPid(p, pid)
	if !found {
		return -2
	}
	if statusVa != 0 {
		var code [4]byte
		code[0] = byte(exitCode)
		code[1] = byte(exitCode >> 8)
		code[2] = byte(exitCode >> 16)
		code[3] = byte(exitCode >> 24)
		p.AS.CopyOut(statusVa, code[:])
	}
	return int64(childPid)
}
