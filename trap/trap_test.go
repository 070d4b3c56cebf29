package trap

import "testing"

func TestNewAppContextPlacesSpAndEntry(t *testing.T) {
	tc := NewAppContext(0x1000, 0x80000, 0x8000000012345, 0x90000, 0x3ffff000)
	if tc.Sepc != 0x1000 {
		t.Fatalf("sepc = %#x, want 0x1000", tc.Sepc)
	}
	if tc.X[RegSp] != 0x80000 {
		t.Fatalf("sp = %#x, want 0x80000", tc.X[RegSp])
	}
	if tc.KernelSatp != 0x8000000012345 {
		t.Fatalf("kernel satp mismatch")
	}
	if tc.X[0] != 0 {
		t.Fatal("x0 must remain zero")
	}
}

func TestNewTrapReturnContextUsesMarker(t *testing.T) {
	tc := NewTrapReturnContext(0x90000)
	if tc.Ra != TrapReturnMarker {
		t.Fatal("fresh task context must carry the trap-return marker")
	}
	if tc.Sp != 0x90000 {
		t.Fatalf("sp = %#x, want 0x90000", tc.Sp)
	}
}

func TestDispatchUserEnvCallAdvancesSepc(t *testing.T) {
	tc := &TrapContext{Sepc: 0x2000}
	res := Dispatch(UserEnvCall, tc, 0, nil)
	if res.Outcome != Continue {
		t.Fatal("ecall must not kill the task")
	}
	if tc.Sepc != 0x2004 {
		t.Fatalf("sepc after ecall = %#x, want 0x2004", tc.Sepc)
	}
}

func TestDispatchPageFaultKills(t *testing.T) {
	tc := &TrapContext{Sepc: 0x3000}
	res := Dispatch(LoadPageFault, tc, 0x500000, func(pc uintptr) string { return "ld a0,0(a1)" })
	if res.Outcome != Kill {
		t.Fatal("load page fault must kill the task")
	}
	if res.Reason == "" {
		t.Fatal("expected a diagnostic reason string")
	}
}

func TestDispatchTimerContinues(t *testing.T) {
	tc := &TrapContext{}
	res := Dispatch(SupervisorTimer, tc, 0, nil)
	if res.Outcome != Continue {
		t.Fatal("timer interrupt must not kill the task")
	}
}

func TestTimerTicksAndDeadline(t *testing.T) {
	var tm Timer
	for i := 0; i < 5; i++ {
		tm.Tick()
	}
	if tm.Ticks() != 5 {
		t.Fatalf("ticks = %d, want 5", tm.Ticks())
	}
	if tm.NextDeadline() <= tm.Ticks() {
		t.Fatal("next deadline must be strictly after current ticks")
	}
}
