package fs

import (
	"bytes"
	"testing"

	"github.com/jason-hue/rvos/defs"
	"github.com/jason-hue/rvos/fd"
	"github.com/jason-hue/rvos/mem"
	"github.com/jason-hue/rvos/vm"
)

func TestAppendEntryThenReadDirFindsIt(t *testing.T) {
	fsys, _ := newTestVolume(t, 16)
	first, err := fsys.AllocCluster(0)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if err := fsys.AppendEntry(fsys.RootCluster(), "hello.txt", false, first, 5); err != nil {
		t.Fatalf("AppendEntry: %v", err)
	}
	entries, err := fsys.ReadDir(fsys.RootCluster())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "hello.txt" {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].FirstCluster != first || entries[0].Size != 5 {
		t.Fatalf("entry fields wrong: %+v", entries[0])
	}
}

func TestAppendEntryDuplicateNameRejected(t *testing.T) {
	fsys, _ := newTestVolume(t, 16)
	first, _ := fsys.AllocCluster(0)
	if err := fsys.AppendEntry(fsys.RootCluster(), "dup.txt", false, first, 0); err != nil {
		t.Fatalf("first append: %v", err)
	}
	other, _ := fsys.AllocCluster(0)
	if err := fsys.AppendEntry(fsys.RootCluster(), "dup.txt", false, other, 0); err != ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestRemoveEntryFreesChain(t *testing.T) {
	fsys, _ := newTestVolume(t, 16)
	first, _ := fsys.AllocCluster(0)
	second, _ := fsys.AllocCluster(first)
	if err := fsys.AppendEntry(fsys.RootCluster(), "gone.txt", false, first, 0); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := fsys.RemoveEntry(fsys.RootCluster(), "gone.txt"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	entries, err := fsys.ReadDir(fsys.RootCluster())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if e.Name == "gone.txt" {
			t.Fatal("removed entry still visible")
		}
	}
	for _, c := range []uint32{first, second} {
		entry, err := fsys.GetFatEntry(c)
		if err != nil {
			t.Fatalf("GetFatEntry: %v", err)
		}
		if entry != fatEntryFree {
			t.Fatalf("cluster %d should have been freed, FAT entry = %#x", c, entry)
		}
	}
}

// testUserSpace builds a tiny address space with one framed page, for
// exercising OSInode.Read/Write through a real fd.UserBuffer rather than
// the ReadAll/raw-byte paths.
func testUserSpace(t *testing.T) (*vm.AddressSpace, uintptr) {
	t.Helper()
	mem.InitFrameAllocator(0x70000, 0x70000+256)
	as, ok := vm.New(mem.FrameAllocatorGlobal)
	if !ok {
		t.Fatal("vm.New failed")
	}
	const va = uintptr(0x1000)
	if !as.MapFramed(va, va+0x1000, 0) {
		t.Fatal("MapFramed failed")
	}
	return as, va
}

func TestOpenCreateWriteReadRoundTrip(t *testing.T) {
	fsys, _ := newTestVolume(t, 16)
	f, errno := fsys.Open("/greeting.txt", defs.O_CREAT|defs.O_RDWR)
	if errno != 0 {
		t.Fatalf("Open O_CREAT: %v", errno)
	}

	as, va := testUserSpace(t)
	payload := []byte("hello, fat32")
	as.WriteAt(va, payload)

	n, werr := f.Write(fd.UserBuffer{AS: as, Va: va, Len: len(payload)})
	if werr != 0 {
		t.Fatalf("Write: %v", werr)
	}
	if n != len(payload) {
		t.Fatalf("write returned %d, want %d", n, len(payload))
	}

	if _, serr := f.Seek(fd.SeekSet, 0); serr != 0 {
		t.Fatalf("Seek: %v", serr)
	}
	readVa := va + 0x100
	n, rerr := f.Read(fd.UserBuffer{AS: as, Va: readVa, Len: len(payload)})
	if rerr != 0 {
		t.Fatalf("Read: %v", rerr)
	}
	if n != len(payload) {
		t.Fatalf("read returned %d, want %d", n, len(payload))
	}
	got := make([]byte, len(payload))
	as.ReadAt(readVa, got)
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}

	reopened, errno := fsys.Open("/greeting.txt", defs.O_RDONLY)
	if errno != 0 {
		t.Fatalf("reopen: %v", errno)
	}
	reopenedInode := reopened.(*OSInode)
	if reopenedInode.size != uint32(len(payload)) {
		t.Fatalf("reopened size = %d, want %d", reopenedInode.size, len(payload))
	}
	all, aerr := reopenedInode.ReadAll()
	if aerr != 0 {
		t.Fatalf("ReadAll: %v", aerr)
	}
	if !bytes.Equal(all, payload) {
		t.Fatalf("ReadAll got %q, want %q", all, payload)
	}
}

func TestOpenMissingWithoutCreateFails(t *testing.T) {
	fsys, _ := newTestVolume(t, 16)
	if _, errno := fsys.Open("/nope.txt", defs.O_RDONLY); errno != -defs.ENOENT {
		t.Fatalf("expected -ENOENT, got %v", errno)
	}
}

func TestMkdirThenNestedFile(t *testing.T) {
	fsys, _ := newTestVolume(t, 32)
	if errno := fsys.Mkdir("/sub"); errno != 0 {
		t.Fatalf("Mkdir: %v", errno)
	}
	if _, errno := fsys.Open("/sub/inner.txt", defs.O_CREAT|defs.O_RDWR); errno != 0 {
		t.Fatalf("Open nested: %v", errno)
	}
	dirFile, errno := fsys.Open("/sub", defs.O_RDONLY)
	if errno != 0 {
		t.Fatalf("Open dir: %v", errno)
	}
	dirInode := dirFile.(*OSInode)
	entries, rerr := fsys.ReadDir(dirInode.firstCluster)
	if rerr != nil {
		t.Fatalf("ReadDir: %v", rerr)
	}
	found := false
	for _, e := range entries {
		if e.Name == "inner.txt" {
			found = true
		}
	}
	if !found {
		t.Fatalf("inner.txt not found in %+v", entries)
	}

	out := make([]fd.Dirent, 8)
	n, gerr := dirInode.Getdents(out)
	if gerr != 0 {
		t.Fatalf("Getdents: %v", gerr)
	}
	if n != 1 || out[0].Name != "inner.txt" {
		t.Fatalf("Getdents = %+v (n=%d)", out[:n], n)
	}
}
