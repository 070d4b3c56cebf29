package fs

import "testing"

func TestParseFsInfoRejectsBadSignature(t *testing.T) {
	sector := make([]byte, 512)
	if _, err := ParseFsInfo(sector); err == nil {
		t.Fatal("expected signature error for zeroed sector")
	}
}

func TestParseFsInfoRoundTrip(t *testing.T) {
	fi := &FsInfo{FreeClusterCount: 100, NextFreeCluster: 5}
	parsed, err := ParseFsInfo(fi.Serialize())
	if err != nil {
		t.Fatalf("ParseFsInfo: %v", err)
	}
	if parsed.FreeClusterCount != 100 || parsed.NextFreeCluster != 5 {
		t.Fatalf("round trip mismatch: %+v", parsed)
	}
}

func TestParseFsInfoInvalidHintDefaultsToTwo(t *testing.T) {
	fi := &FsInfo{FreeClusterCount: 10, NextFreeCluster: 1}
	parsed, err := ParseFsInfo(fi.Serialize())
	if err != nil {
		t.Fatalf("ParseFsInfo: %v", err)
	}
	if parsed.NextFreeCluster != 2 {
		t.Fatalf("expected invalid hint 1 to default to 2, got %d", parsed.NextFreeCluster)
	}
}
