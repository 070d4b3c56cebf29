package trap

import "github.com/jason-hue/rvos/config"

// Timer models the kernel's tick counter: real rCore reads the mtime CSR
// through SBI; this kernel has no CSR to read, so get_time is driven by a
// counter the scheduler advances once per timer trap (SPEC_FULL.md
// SUPPLEMENTED FEATURES). Not safe for concurrent use from more than one
// goroutine without external locking — this kernel is single-CPU, and the
// timer is only ever advanced by the one goroutine running the scheduler
// loop.
type Timer struct {
	ticks uint64
}

// Tick advances the counter by one timer interrupt.
func (t *Timer) Tick() { t.ticks++ }

// Ticks returns the raw tick count, the unit NextDeadline is expressed in.
func (t *Timer) Ticks() uint64 { return t.ticks }

// Millis converts the tick count to milliseconds using
// config.TicksPerSecond. SYS_GET_TIME does not use it: it reports
// microseconds, computed from Ticks in the syscall package.
func (t *Timer) Millis() int64 {
	return int64(t.ticks) * 1000 / int64(config.TicksPerSecond)
}

// NextDeadline returns the tick count at which the next time-slice
// preemption should fire.
func (t *Timer) NextDeadline() uint64 {
	return t.ticks + uint64(config.TimeSliceTicks)
}
