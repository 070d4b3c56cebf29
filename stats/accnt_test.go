package stats

import (
	"bytes"
	"testing"
)

func TestAccntAddAndSnapshot(t *testing.T) {
	var a Accnt
	a.AddUser(10)
	a.AddSys(5)
	user, sys := a.Snapshot()
	if user != 10 || sys != 5 {
		t.Fatalf("got user=%d sys=%d", user, sys)
	}
}

func TestAccntAddMerges(t *testing.T) {
	var parent, child Accnt
	parent.AddUser(10)
	child.AddUser(3)
	child.AddSys(7)
	parent.Add(&child)
	user, sys := parent.Snapshot()
	if user != 13 || sys != 7 {
		t.Fatalf("got user=%d sys=%d", user, sys)
	}
}

func TestExportProducesOneSamplePerProcess(t *testing.T) {
	usages := []ProcUsage{
		{Pid: 1, Name: "init", UserTicks: 100, SysTicks: 20},
		{Pid: 2, Name: "shell", UserTicks: 50, SysTicks: 5},
	}
	p := Export(usages)
	if len(p.Sample) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(p.Sample))
	}
	if p.Sample[0].Value[0] != 100 || p.Sample[0].Value[1] != 20 {
		t.Fatalf("sample 0 values wrong: %v", p.Sample[0].Value)
	}
}

func TestWriteProducesNonEmptyOutput(t *testing.T) {
	var buf bytes.Buffer
	usages := []ProcUsage{{Pid: 1, Name: "init", UserTicks: 1, SysTicks: 1}}
	if err := Write(&buf, usages); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected non-empty gzip-encoded profile")
	}
}
