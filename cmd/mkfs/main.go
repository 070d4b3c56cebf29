// Command mkfs builds a bootable FAT32 disk image for this kernel,
// formatting it and copying a host skeleton directory tree into it.
// Grounded on biscuit's mkfs/mkfs.go (addfiles/copydata), adapted from
// biscuit's log-structured ufs.Ufs_t to this kernel's fs.FileSystem —
// writes go through a throwaway vm.AddressSpace + fd.UserBuffer exactly
// as a running kernel's sysWrite would, rather than poking fs.OSInode
// through a side channel.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jason-hue/rvos/blockdev"
	"github.com/jason-hue/rvos/defs"
	"github.com/jason-hue/rvos/fd"
	"github.com/jason-hue/rvos/fs"
	"github.com/jason-hue/rvos/mem"
	"github.com/jason-hue/rvos/vm"
)

func usage(me string) {
	fmt.Printf("%s <output image> <size-in-sectors> <skel dir>\n", me)
	os.Exit(1)
}

// scratchBuffer is a single reusable framed page, standing in for the
// user address space a real process would supply to sysWrite's
// UserBuffer.
type scratchBuffer struct {
	as *vm.AddressSpace
	va uintptr
}

func newScratchBuffer() *scratchBuffer {
	mem.InitFrameAllocator(0x80000, 0x80000+1<<20)
	as, ok := vm.New(mem.FrameAllocatorGlobal)
	if !ok {
		panic("mkfs: vm.New failed")
	}
	const va = uintptr(0x1000)
	if !as.MapFramed(va, va+0x1000, 0) {
		panic("mkfs: MapFramed failed")
	}
	return &scratchBuffer{as: as, va: va}
}

func (s *scratchBuffer) write(f fd.File, chunk []byte) {
	s.as.WriteAt(s.va, chunk)
	n, errno := f.Write(fd.UserBuffer{AS: s.as, Va: s.va, Len: len(chunk)})
	if errno != 0 || n != len(chunk) {
		panic(fmt.Sprintf("mkfs: short write (%d/%d): %v", n, len(chunk), errno))
	}
}

func copydata(scratch *scratchBuffer, src string, fsys *fs.FileSystem, dst string) {
	srcFile, err := os.Open(src)
	if err != nil {
		panic(err)
	}
	defer srcFile.Close()

	f, errno := fsys.Open(dst, defs.O_CREAT|defs.O_TRUNC|defs.O_RDWR)
	if errno != 0 {
		panic(fmt.Sprintf("mkfs: create %s: %v", dst, errno))
	}

	buf := make([]byte, 4096)
	for {
		n, readErr := srcFile.Read(buf)
		if n > 0 {
			scratch.write(f, buf[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			panic(readErr)
		}
	}
}

func addFiles(fsys *fs.FileSystem, skeldir string) {
	scratch := newScratchBuffer()
	err := filepath.WalkDir(skeldir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			fmt.Printf("failed to access %q: %v\n", path, err)
			return err
		}
		rel := strings.TrimPrefix(path, skeldir)
		if rel == "" {
			return nil
		}
		rel = "/" + strings.TrimPrefix(rel, "/")

		if d.IsDir() {
			if errno := fsys.Mkdir(rel); errno != 0 {
				fmt.Printf("failed to create dir %v: %v\n", rel, errno)
			}
			return nil
		}
		copydata(scratch, path, fsys, rel)
		return nil
	})
	if err != nil {
		fmt.Printf("error walking %q: %v\n", skeldir, err)
		os.Exit(1)
	}
}

func main() {
	if len(os.Args) < 4 {
		usage(os.Args[0])
	}
	image := os.Args[1]
	sectors, err := strconv.Atoi(os.Args[2])
	if err != nil {
		fmt.Printf("bad sector count %q: %v\n", os.Args[2], err)
		os.Exit(1)
	}
	skeldir := os.Args[3]

	dev, err := blockdev.OpenFile(image, sectors)
	if err != nil {
		panic(err)
	}
	defer dev.Close()

	fsys, err := fs.Format(dev, fs.DefaultFormatOptions)
	if err != nil {
		panic(err)
	}
	addFiles(fsys, skeldir)
}
