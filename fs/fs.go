package fs

import (
	"strings"

	"github.com/jason-hue/rvos/blkcache"
	"github.com/jason-hue/rvos/blockdev"
	"github.com/jason-hue/rvos/defs"
	"github.com/jason-hue/rvos/fd"
)

// FileSystem is the mounted FAT32 volume: a block cache plus the parsed
// BPB/FsInfo, and the path-traversal/open/create/remove operations
// spec.md §4.6 and §4.7 describe. It implements syscall.Filesystem.
type FileSystem struct {
	cache  *blkcache.Cache
	bpb    *BPB
	fsInfo *FsInfo
}

// Mount reads the boot sector and FsInfo sector off dev and builds a
// FileSystem, per spec.md §4.6's boot-sector validation steps.
func Mount(dev blockdev.Device) (*FileSystem, error) {
	cache := blkcache.New(dev, blkcache.DefaultThreshold)
	boot, err := cache.Read(0)
	if err != nil {
		return nil, err
	}
	bpb, err := ParseBPB(boot)
	if err != nil {
		return nil, err
	}
	fiSector, err := cache.Read(int(bpb.FsInfoSector))
	if err != nil {
		return nil, err
	}
	fsInfo, err := ParseFsInfo(fiSector)
	if err != nil {
		return nil, err
	}
	fsys := &FileSystem{cache: cache, bpb: bpb, fsInfo: fsInfo}
	if fsInfo.FreeClusterCount == UnknownFreeCount {
		if err := fsys.rescanFreeCount(); err != nil {
			return nil, err
		}
	}
	return fsys, nil
}

// rescanFreeCount walks the entire FAT to recompute FreeClusterCount when
// the FsInfo sector reports it unknown (spec.md §4.6: "0xFFFFFFFF = free
// count unknown").
func (fsys *FileSystem) rescanFreeCount() error {
	total := fsys.bpb.TotalClusters()
	var free uint32
	for c := uint32(2); c < total+2; c++ {
		entry, err := fsys.GetFatEntry(c)
		if err != nil {
			return err
		}
		if entry == fatEntryFree {
			free++
		}
	}
	fsys.fsInfo.FreeClusterCount = free
	return fsys.syncFsInfo()
}

// RootCluster is the first cluster of the root directory.
func (fsys *FileSystem) RootCluster() uint32 {
	return fsys.bpb.RootDirFirstCluster
}

// ReadCluster reads one whole cluster's worth of sectors via the block
// cache.
func (fsys *FileSystem) ReadCluster(cluster uint32) ([]byte, error) {
	start := int(fsys.bpb.ClusterToSector(cluster))
	out := make([]byte, 0, fsys.bpb.BytesPerCluster())
	for s := 0; s < int(fsys.bpb.SectorsPerCluster); s++ {
		buf, err := fsys.cache.Read(start + s)
		if err != nil {
			return nil, err
		}
		out = append(out, buf...)
	}
	return out, nil
}

// WriteCluster writes data (exactly one cluster's worth) back through the
// block cache.
func (fsys *FileSystem) WriteCluster(cluster uint32, data []byte) error {
	start := int(fsys.bpb.ClusterToSector(cluster))
	bps := int(fsys.bpb.BytesPerSector)
	for s := 0; s < int(fsys.bpb.SectorsPerCluster); s++ {
		chunk := data[s*bps : (s+1)*bps]
		if err := fsys.cache.Write(start+s, func(buf []byte) { copy(buf, chunk) }); err != nil {
			return err
		}
	}
	return nil
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" && p != "." {
			parts = append(parts, p)
		}
	}
	return parts
}

// resolve walks path from the root, returning the DirEntry of the final
// component and the cluster of its parent directory. An empty path (or
// "/") resolves to the root directory itself, reported with a zero-value
// DirEntry whose FirstCluster is RootCluster() and IsDir true.
func (fsys *FileSystem) resolve(path string) (entry DirEntry, parent uint32, err error) {
	parts := splitPath(path)
	dirCluster := fsys.RootCluster()
	if len(parts) == 0 {
		return DirEntry{Name: "/", IsDir: true, FirstCluster: dirCluster}, 0, nil
	}
	for i, name := range parts {
		entries, rerr := fsys.ReadDir(dirCluster)
		if rerr != nil {
			return DirEntry{}, 0, rerr
		}
		var found *DirEntry
		for j := range entries {
			if namesEqualFold(entries[j].Name, name) {
				found = &entries[j]
				break
			}
		}
		if found == nil {
			return DirEntry{}, 0, ErrNotFound
		}
		if i == len(parts)-1 {
			return *found, dirCluster, nil
		}
		if !found.IsDir {
			return DirEntry{}, 0, ErrNotADirectory
		}
		dirCluster = found.FirstCluster
	}
	panic("unreachable")
}

// parentDirOf returns the cluster of the directory that would hold path's
// final component, and that component's name, without requiring the
// component itself to already exist (used by Open with O_CREAT and by
// Mkdir).
func (fsys *FileSystem) parentDirOf(path string) (parentCluster uint32, name string, err error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return 0, "", ErrIsADirectory
	}
	dirCluster := fsys.RootCluster()
	for _, name := range parts[:len(parts)-1] {
		entries, rerr := fsys.ReadDir(dirCluster)
		if rerr != nil {
			return 0, "", rerr
		}
		var found *DirEntry
		for j := range entries {
			if namesEqualFold(entries[j].Name, name) {
				found = &entries[j]
				break
			}
		}
		if found == nil {
			return 0, "", ErrNotFound
		}
		if !found.IsDir {
			return 0, "", ErrNotADirectory
		}
		dirCluster = found.FirstCluster
	}
	return dirCluster, parts[len(parts)-1], nil
}

// Open implements syscall.Filesystem: it resolves path, optionally
// creating it (O_CREAT) or truncating it (O_TRUNC), and returns an
// OSInode wrapping the result.
func (fsys *FileSystem) Open(path string, flags int) (fd.File, defs.Err_t) {
	entry, parent, err := fsys.resolve(path)
	if err == ErrNotFound {
		if flags&defs.O_CREAT == 0 {
			return nil, -defs.ENOENT
		}
		parentCluster, name, perr := fsys.parentDirOf(path)
		if perr != nil {
			return nil, errToErrno(perr)
		}
		first, aerr := fsys.AllocCluster(0)
		if aerr != nil {
			return nil, -defs.ENOSPC
		}
		if cerr := fsys.AppendEntry(parentCluster, name, false, first, 0); cerr != nil {
			return nil, errToErrno(cerr)
		}
		return NewOSInode(fsys, name, parentCluster, first, 0, false), 0
	}
	if err != nil {
		return nil, errToErrno(err)
	}
	if entry.IsDir {
		return NewOSInode(fsys, entry.Name, parent, entry.FirstCluster, entry.Size, true), 0
	}
	if flags&defs.O_TRUNC != 0 && entry.FirstCluster >= 2 {
		if ferr := fsys.FreeChain(entry.FirstCluster); ferr != nil {
			return nil, errToErrno(ferr)
		}
		entry.FirstCluster = 0
		entry.Size = 0
		fsys.updateEntrySize(parent, entry)
	}
	return NewOSInode(fsys, entry.Name, parent, entry.FirstCluster, entry.Size, false), 0
}

// Mkdir creates a subdirectory at path, writing its self ("." ) and
// parent ("..") entries, per spec.md §4.6 "Directory creation".
func (fsys *FileSystem) Mkdir(path string) defs.Err_t {
	parentCluster, name, err := fsys.parentDirOf(path)
	if err != nil {
		return errToErrno(err)
	}
	first, aerr := fsys.AllocCluster(0)
	if aerr != nil {
		return -defs.ENOSPC
	}
	dotSfn, _ := buildShortNameCandidate(".", "")
	dotdotSfn, _ := buildShortNameCandidate("..", "")
	records := [][]byte{
		serializeRawSFN(dotSfn, attrDirectory, first, 0),
		serializeRawSFN(dotdotSfn, attrDirectory, parentCluster, 0),
	}
	if err := fsys.writeDirStream([]uint32{first}, flattenRecords(records, fsys.bpb.BytesPerCluster())); err != nil {
		return -defs.EIO
	}
	if err := fsys.AppendEntry(parentCluster, name, true, first, 0); err != nil {
		return errToErrno(err)
	}
	return 0
}

func flattenRecords(records [][]byte, clusterSize int) []byte {
	out := make([]byte, clusterSize)
	for i, r := range records {
		copy(out[i*dirEntrySize:], r)
	}
	return out
}

// Remove deletes the file or empty directory at path.
func (fsys *FileSystem) Remove(path string) defs.Err_t {
	entry, parent, err := fsys.resolve(path)
	if err != nil {
		return errToErrno(err)
	}
	if entry.IsDir {
		children, derr := fsys.ReadDir(entry.FirstCluster)
		if derr != nil {
			return -defs.EIO
		}
		for _, c := range children {
			if c.Name != "." && c.Name != ".." {
				return -defs.ENOTEMPTY
			}
		}
	}
	if err := fsys.RemoveEntry(parent, entry.Name); err != nil {
		return errToErrno(err)
	}
	return 0
}

// updateEntrySize rewrites an existing SFN record's size/first-cluster
// fields in place (used after truncation or append-on-write). It does not
// use DirEntry's entryOffset, which is only valid against the data
// snapshot it was read from; instead it rewrites the first SFN record
// whose 8.3 display name matches updated.Name or whose first cluster
// equals updated.FirstCluster.
func (fsys *FileSystem) updateEntrySize(dirCluster uint32, updated DirEntry) error {
	data, chain, err := fsys.readDirStream(dirCluster)
	if err != nil {
		return err
	}
	for off := 0; off+dirEntrySize <= len(data); off += dirEntrySize {
		rec := data[off : off+dirEntrySize]
		if rec[0] == entryFree || rec[0] == entryDeleted || rec[11] == attrLFN {
			continue
		}
		sfn := parseRawSFN(rec)
		if namesEqualFold(sfnToDisplayName(sfn.Name), updated.Name) || sfn.firstCluster() == updated.FirstCluster {
			copy(data[off:off+dirEntrySize], serializeRawSFN(sfn.Name, rec[11], updated.FirstCluster, updated.Size))
			return fsys.writeDirStream(chain, data)
		}
	}
	return ErrNotFound
}

func errToErrno(err error) defs.Err_t {
	switch err {
	case ErrNotFound:
		return -defs.ENOENT
	case ErrAlreadyExists:
		return -defs.EEXIST
	case ErrNotADirectory:
		return -defs.ENOTDIR
	case ErrIsADirectory:
		return -defs.EISDIR
	case ErrNotEnoughSpace:
		return -defs.ENOSPC
	case ErrNameTooLong:
		return -defs.ENAMETOOLONG
	default:
		return -defs.EIO
	}
}
