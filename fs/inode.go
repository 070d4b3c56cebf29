package fs

import (
	"sync"

	"github.com/jason-hue/rvos/defs"
	"github.com/jason-hue/rvos/fd"
)

// OSInode is an open FAT32 file or directory, implementing fd.File plus
// the optional fd.Statter/fd.DirReader/fd.WholeFileReader capabilities —
// grounded on original_source/os/src/fs/inode.rs's OSInode, which plays
// the same role over the same split (buffered File trait vs. a direct
// read_all for exec).
type OSInode struct {
	mu sync.Mutex

	fsys         *FileSystem
	name         string
	parentDir    uint32
	firstCluster uint32
	size         uint32
	isDir        bool
	offset       int64
}

// NewOSInode wraps an already-resolved directory entry as an open file
// handle.
func NewOSInode(fsys *FileSystem, name string, parentDir, firstCluster uint32, size uint32, isDir bool) *OSInode {
	return &OSInode{fsys: fsys, name: name, parentDir: parentDir, firstCluster: firstCluster, size: size, isDir: isDir}
}

func (o *OSInode) Readable() bool { return !o.isDir }
func (o *OSInode) Writable() bool { return !o.isDir }
func (o *OSInode) Name() string   { return o.name }

// Read copies up to buf.Len bytes starting at the current offset,
// crossing cluster boundaries as needed, and advances the offset by the
// number of bytes actually read.
func (o *OSInode) Read(buf fd.UserBuffer) (int, defs.Err_t) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.isDir {
		return 0, -defs.EISDIR
	}
	remaining := int64(o.size) - o.offset
	if remaining <= 0 {
		return 0, 0
	}
	want := buf.Len
	if int64(want) > remaining {
		want = int(remaining)
	}
	data, err := o.readRange(o.offset, want)
	if err != 0 {
		return 0, err
	}
	n := buf.WriteFromKernel(data)
	o.offset += int64(n)
	return n, 0
}

// ReadAll reads the whole file into a freshly allocated slice, bypassing
// UserBuffer translation entirely (used by sysExec, which has no user
// address space yet to translate against).
func (o *OSInode) ReadAll() ([]byte, defs.Err_t) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.isDir {
		return nil, -defs.EISDIR
	}
	return o.readRange(0, int(o.size))
}

func (o *OSInode) readRange(offset int64, n int) ([]byte, defs.Err_t) {
	if n <= 0 || o.firstCluster < 2 {
		return nil, 0
	}
	bpc := o.fsys.bpb.BytesPerCluster()
	chain, err := o.fsys.ClusterChain(o.firstCluster)
	if err != nil {
		return nil, -defs.EIO
	}
	out := make([]byte, 0, n)
	pos := offset
	for len(out) < n {
		clusterIdx := int(pos / int64(bpc))
		inClusterOff := int(pos % int64(bpc))
		if clusterIdx >= len(chain) {
			break
		}
		data, rerr := o.fsys.ReadCluster(chain[clusterIdx])
		if rerr != nil {
			return nil, -defs.EIO
		}
		take := bpc - inClusterOff
		if take > n-len(out) {
			take = n - len(out)
		}
		out = append(out, data[inClusterOff:inClusterOff+take]...)
		pos += int64(take)
	}
	return out, 0
}

// Write copies bytes from buf into the file starting at the current
// offset, allocating and zeroing new clusters as the write crosses the
// end of the existing chain, and flushes the updated size/first-cluster
// to the parent directory's entry (spec.md §4.6 "File entry": "write:
// allocates clusters crossing boundaries and flushes the directory entry
// on first_cluster/size change").
func (o *OSInode) Write(buf fd.UserBuffer) (int, defs.Err_t) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.isDir {
		return 0, -defs.EISDIR
	}
	src := make([]byte, buf.Len)
	n := buf.ReadIntoKernel(src)
	if n == 0 {
		return 0, 0
	}
	src = src[:n]

	bpc := o.fsys.bpb.BytesPerCluster()
	chain, err := o.fsys.ClusterChain(o.firstCluster)
	if err != nil {
		return 0, -defs.EIO
	}
	firstClusterChanged := false
	pos := o.offset
	written := 0
	for written < len(src) {
		clusterIdx := int(pos / int64(bpc))
		inClusterOff := int(pos % int64(bpc))
		for clusterIdx >= len(chain) {
			var prev uint32
			if len(chain) > 0 {
				prev = chain[len(chain)-1]
			}
			next, aerr := o.fsys.AllocCluster(prev)
			if aerr != nil {
				return written, -defs.ENOSPC
			}
			if len(chain) == 0 {
				o.firstCluster = next
				firstClusterChanged = true
			}
			chain = append(chain, next)
		}
		data, rerr := o.fsys.ReadCluster(chain[clusterIdx])
		if rerr != nil {
			return written, -defs.EIO
		}
		take := bpc - inClusterOff
		if take > len(src)-written {
			take = len(src) - written
		}
		copy(data[inClusterOff:inClusterOff+take], src[written:written+take])
		if werr := o.fsys.WriteCluster(chain[clusterIdx], data); werr != nil {
			return written, -defs.EIO
		}
		written += take
		pos += int64(take)
	}
	o.offset = pos
	sizeChanged := false
	if uint32(o.offset) > o.size {
		o.size = uint32(o.offset)
		sizeChanged = true
	}
	if firstClusterChanged || sizeChanged {
		o.fsys.updateEntrySize(o.parentDir, DirEntry{Name: o.name, FirstCluster: o.firstCluster, Size: o.size})
	}
	return written, 0
}

// Seek repositions the file offset, per the Whence semantics fd.File
// declares.
func (o *OSInode) Seek(whence fd.Whence, offset int64) (int64, defs.Err_t) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var base int64
	switch whence {
	case fd.SeekSet:
		base = 0
	case fd.SeekCur:
		base = o.offset
	case fd.SeekEnd:
		base = int64(o.size)
	default:
		return 0, -defs.EINVAL
	}
	next := base + offset
	if next < 0 {
		return 0, -defs.EINVAL
	}
	o.offset = next
	return o.offset, 0
}

// Stat reports the inode's size and directory-ness.
func (o *OSInode) Stat() (fd.Stat, defs.Err_t) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return fd.Stat{Ino: uint64(o.firstCluster), Size: int64(o.size), IsDir: o.isDir}, 0
}

// Getdents fills out with the directory's live entries, skipping the
// self/parent pointers ReadDir otherwise reports like ordinary entries.
func (o *OSInode) Getdents(out []fd.Dirent) (int, defs.Err_t) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.isDir {
		return 0, -defs.ENOTDIR
	}
	entries, err := o.fsys.ReadDir(o.firstCluster)
	if err != nil {
		return 0, -defs.EIO
	}
	n := 0
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		if n >= len(out) {
			break
		}
		typ := uint8(0)
		if e.IsDir {
			typ = 1
		}
		out[n] = fd.Dirent{Name: e.Name, Ino: uint64(e.FirstCluster), Type: typ}
		n++
	}
	return n, 0
}
