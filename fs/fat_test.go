package fs

import "testing"

func TestAllocClusterLinksChain(t *testing.T) {
	fsys, _ := newTestVolume(t, 8)
	a, err := fsys.AllocCluster(0)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	b, err := fsys.AllocCluster(a)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	chain, err := fsys.ClusterChain(a)
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	if len(chain) != 2 || chain[0] != a || chain[1] != b {
		t.Fatalf("chain = %v, want [%d %d]", chain, a, b)
	}
}

func TestAllocClusterWrapsAroundWithoutPanicking(t *testing.T) {
	fsys, _ := newTestVolume(t, 4)
	// Exhaust every free cluster (3, 4, 5), which drives the hint past the
	// end of the FAT and wraps it back to cluster 2, then free the first
	// one and confirm the allocator finds it again instead of failing.
	var allocated []uint32
	for i := 0; i < 3; i++ {
		c, err := fsys.AllocCluster(0)
		if err != nil {
			t.Fatalf("alloc %d: %v", i, err)
		}
		allocated = append(allocated, c)
	}
	if err := fsys.FreeChain(allocated[0]); err != nil {
		t.Fatalf("free: %v", err)
	}
	got, err := fsys.AllocCluster(0)
	if err != nil {
		t.Fatalf("alloc after wraparound: %v", err)
	}
	if got != allocated[0] {
		t.Fatalf("expected wraparound to reuse freed cluster %d, got %d", allocated[0], got)
	}
}

func TestFreeChainCreditsFreeCount(t *testing.T) {
	fsys, _ := newTestVolume(t, 8)
	before := fsys.fsInfo.FreeClusterCount
	c, err := fsys.AllocCluster(0)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if fsys.fsInfo.FreeClusterCount != before-1 {
		t.Fatalf("alloc should decrement free count")
	}
	if err := fsys.FreeChain(c); err != nil {
		t.Fatalf("free: %v", err)
	}
	if fsys.fsInfo.FreeClusterCount != before {
		t.Fatalf("free should restore the count, got %d want %d", fsys.fsInfo.FreeClusterCount, before)
	}
	entry, err := fsys.GetFatEntry(c)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry != fatEntryFree {
		t.Fatalf("freed cluster should read back as free, got %#x", entry)
	}
}

func TestAllocClusterNotEnoughSpace(t *testing.T) {
	// totalClusters=3 gives clusters {2,3,4}; cluster 2 is reserved for
	// the root directory, leaving exactly 2 allocatable clusters.
	fsys, _ := newTestVolume(t, 3)
	for i := 0; i < 2; i++ {
		if _, err := fsys.AllocCluster(0); err != nil {
			t.Fatalf("alloc %d: %v", i, err)
		}
	}
	if _, err := fsys.AllocCluster(0); err != ErrNotEnoughSpace {
		t.Fatalf("expected ErrNotEnoughSpace, got %v", err)
	}
}
