package fs

import (
	"testing"

	"github.com/jason-hue/rvos/blockdev"
	"github.com/jason-hue/rvos/defs"
)

func TestFormatThenCreateFile(t *testing.T) {
	dev := blockdev.NewMemory(4096)
	fsys, err := Format(dev, DefaultFormatOptions)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if _, errno := fsys.Open("/hello.txt", defs.O_CREAT|defs.O_RDWR); errno != 0 {
		t.Fatalf("Open after format: %v", errno)
	}
	entries, rerr := fsys.ReadDir(fsys.RootCluster())
	if rerr != nil {
		t.Fatalf("ReadDir: %v", rerr)
	}
	if len(entries) != 1 || entries[0].Name != "hello.txt" {
		t.Fatalf("entries = %+v", entries)
	}
}
