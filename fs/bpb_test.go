package fs

import "testing"

func TestParseBPBRejectsFAT16(t *testing.T) {
	sector := make([]byte, 512)
	sector[22] = 1 // non-zero sectors_per_fat_16 => not FAT32
	if _, err := ParseBPB(sector); err == nil {
		t.Fatal("expected error for FAT16-shaped boot sector")
	}
}

func TestBPBDerivedQuantities(t *testing.T) {
	fsys, _ := newTestVolume(t, 16)
	if got := fsys.bpb.FirstDataSector(); got != 32+fsys.bpb.SectorsPerAllFATs() {
		t.Fatalf("FirstDataSector = %d", got)
	}
	if got := fsys.bpb.ClusterToSector(2); got != fsys.bpb.FirstDataSector() {
		t.Fatalf("cluster 2 should map to the first data sector, got %d", got)
	}
	if got := fsys.bpb.TotalClusters(); got != 16 {
		t.Fatalf("TotalClusters = %d, want 16", got)
	}
}
