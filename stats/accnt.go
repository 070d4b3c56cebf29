// Package stats accumulates per-process CPU usage and exports it as a
// pprof profile (spec.md's supplemented accounting feature — the
// original rCore tutorial has no usage accounting at all; this kernel
// adds it in the teacher's idiom). Grounded on biscuit's accnt/accnt.go
// (Accnt_t), adapted from wall-clock nanoseconds to scheduler ticks since
// this kernel has no wall clock, only trap.Timer's tick counter.
package stats

import "sync"

// Accnt accumulates a process's user-mode and kernel-mode tick counts,
// mirroring biscuit's Accnt_t.Userns/Sysns split but in scheduler ticks
// rather than nanoseconds.
type Accnt struct {
	mu      sync.Mutex
	UserTicks uint64
	SysTicks  uint64
}

// AddUser credits delta ticks of user-mode execution.
func (a *Accnt) AddUser(delta uint64) {
	a.mu.Lock()
	a.UserTicks += delta
	a.mu.Unlock()
}

// AddSys credits delta ticks of kernel-mode execution (time spent inside
// a trap handler or syscall dispatch).
func (a *Accnt) AddSys(delta uint64) {
	a.mu.Lock()
	a.SysTicks += delta
	a.mu.Unlock()
}

// Snapshot returns a consistent (user, sys) tick pair, per biscuit's
// Accnt_t.Fetch locking discipline.
func (a *Accnt) Snapshot() (user, sys uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.UserTicks, a.SysTicks
}

// Add merges n's counts into a, per biscuit's Accnt_t.Add (used when a
// parent collects a reaped zombie child's usage into its own total).
func (a *Accnt) Add(n *Accnt) {
	u, s := n.Snapshot()
	a.mu.Lock()
	a.UserTicks += u
	a.SysTicks += s
	a.mu.Unlock()
}
