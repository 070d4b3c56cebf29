package mem

import "testing"

func TestAllocFreeWatermarkStable(t *testing.T) {
	InitFrameAllocator(0x1000, 0x1010)

	cur0, free0 := FrameAllocatorGlobal.Watermark()

	tr, ok := FrameAllocatorGlobal.Alloc()
	if !ok {
		t.Fatal("alloc failed with frames available")
	}
	for _, b := range tr.Bytes() {
		if b != 0 {
			t.Fatalf("freshly allocated frame not zeroed")
		}
	}
	tr.Free()

	cur1, free1 := FrameAllocatorGlobal.Watermark()
	if cur1 != cur0 {
		t.Fatalf("watermark advanced across alloc+free: %#x -> %#x", cur0, cur1)
	}
	if free1 != free0 {
		t.Fatalf("free list should be unchanged, got %d -> %d", free0, free1)
	}
}

func TestAllocExhaustion(t *testing.T) {
	InitFrameAllocator(0x2000, 0x2002)
	var trackers []*Tracker
	for i := 0; i < 2; i++ {
		tr, ok := FrameAllocatorGlobal.Alloc()
		if !ok {
			t.Fatalf("alloc %d should have succeeded", i)
		}
		trackers = append(trackers, tr)
	}
	if _, ok := FrameAllocatorGlobal.Alloc(); ok {
		t.Fatal("alloc should fail once the pool is exhausted")
	}
	for _, tr := range trackers {
		tr.Free()
	}
}

func TestDoubleFreePanics(t *testing.T) {
	InitFrameAllocator(0x3000, 0x3004)
	tr, _ := FrameAllocatorGlobal.Alloc()
	tr.Free()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double free")
		}
	}()
	tr.Free()
}

func TestDeallocOutOfRangePanics(t *testing.T) {
	InitFrameAllocator(0x4000, 0x4004)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on out-of-range dealloc")
		}
	}()
	FrameAllocatorGlobal.Dealloc(0x9000)
}
