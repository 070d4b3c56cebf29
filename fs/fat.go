package fs

import "encoding/binary"

// FAT32 entry values, per spec.md §4.6 "FAT entry semantics" and
// original_source/os/src/fatfs/table.rs.
const (
	fatEntryFree      uint32 = 0
	fatEntryBad       uint32 = 0x0FFFFFF7
	fatEntryEndOfChainMin uint32 = 0x0FFFFFF8
	fatEntryEndOfChain    uint32 = 0x0FFFFFFF
	fatEntryMask      uint32 = 0x0FFFFFFF // top 4 bits are reserved
)

func isEndOfChain(entry uint32) bool {
	e := entry & fatEntryMask
	return e >= fatEntryEndOfChainMin
}

// fatEntryLocation returns the sector (relative to the start of the first
// FAT copy) and in-sector byte offset holding cluster's 4-byte entry.
func (fsys *FileSystem) fatEntryLocation(cluster uint32) (sector uint32, offset uint32) {
	byteOffset := cluster * 4
	bps := uint32(fsys.bpb.BytesPerSector)
	return byteOffset / bps, byteOffset % bps
}

// GetFatEntry reads the raw FAT entry for cluster (masked to 28 bits).
func (fsys *FileSystem) GetFatEntry(cluster uint32) (uint32, error) {
	rel, off := fsys.fatEntryLocation(cluster)
	sectorID := int(uint32(fsys.bpb.ReservedSectors) + rel)
	buf, err := fsys.cache.Read(sectorID)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[off:off+4]) & fatEntryMask, nil
}

// SetFatEntry writes value into cluster's FAT entry. Only the primary FAT
// copy is maintained; mirroring into the remaining NumFATs-1 copies is a
// refinement this kernel's single-volume, single-writer model does not
// need (nothing ever reads a FAT copy after the first).
func (fsys *FileSystem) SetFatEntry(cluster uint32, value uint32) error {
	rel, off := fsys.fatEntryLocation(cluster)
	sectorID := int(uint32(fsys.bpb.ReservedSectors) + rel)
	return fsys.cache.Write(sectorID, func(buf []byte) {
		binary.LittleEndian.PutUint32(buf[off:off+4], value&fatEntryMask)
	})
}

// ClusterChain walks the FAT starting at first and returns every cluster
// number in order, stopping at end-of-chain. A Bad-cluster marker midway
// through a chain is treated as a truncated, otherwise valid chain.
func (fsys *FileSystem) ClusterChain(first uint32) ([]uint32, error) {
	var chain []uint32
	c := first
	for c >= 2 && !isEndOfChain(c) && c != fatEntryBad {
		chain = append(chain, c)
		next, err := fsys.GetFatEntry(c)
		if err != nil {
			return nil, err
		}
		c = next
	}
	return chain, nil
}

// AllocCluster finds a free cluster, links it after prev (if prev != 0),
// marks it end-of-chain, and updates the FsInfo free count and allocation
// hint. Unlike original_source's allocator — which advances a hint and
// simply panics if it walks off the end of the FAT without wrapping back
// to cluster 2 (spec.md §9's flagged bug) — this scans at most
// TotalClusters candidates starting at the hint and wrapping through
// cluster 2, so a volume with free space anywhere is always found.
func (fsys *FileSystem) AllocCluster(prev uint32) (uint32, error) {
	total := fsys.bpb.TotalClusters()
	hint := fsys.fsInfo.NextFreeCluster
	if hint < 2 || hint >= total+2 {
		hint = 2
	}
	var found uint32
	ok := false
	for i := uint32(0); i < total; i++ {
		candidate := 2 + (hint-2+i)%total
		entry, err := fsys.GetFatEntry(candidate)
		if err != nil {
			return 0, err
		}
		if entry == fatEntryFree {
			found = candidate
			ok = true
			break
		}
	}
	if !ok {
		return 0, ErrNotEnoughSpace
	}
	if err := fsys.SetFatEntry(found, fatEntryEndOfChain); err != nil {
		return 0, err
	}
	if prev != 0 {
		if err := fsys.SetFatEntry(prev, found); err != nil {
			return 0, err
		}
	}
	if fsys.fsInfo.FreeClusterCount != UnknownFreeCount && fsys.fsInfo.FreeClusterCount > 0 {
		fsys.fsInfo.FreeClusterCount--
	}
	next := found + 1
	if next >= total+2 {
		next = 2
	}
	fsys.fsInfo.NextFreeCluster = next
	if err := fsys.syncFsInfo(); err != nil {
		return 0, err
	}
	if err := fsys.zeroCluster(found); err != nil {
		return 0, err
	}
	return found, nil
}

// FreeChain walks the chain starting at first, clearing every entry to
// Free and crediting the FsInfo free count for each cluster released.
// original_source's directory-entry removal marks the entry deleted but
// never calls anything like this (spec.md §9's second flagged bug); this
// kernel's Remove always calls FreeChain so deleted space is reusable.
func (fsys *FileSystem) FreeChain(first uint32) error {
	if first < 2 {
		return nil
	}
	chain, err := fsys.ClusterChain(first)
	if err != nil {
		return err
	}
	for _, c := range chain {
		if err := fsys.SetFatEntry(c, fatEntryFree); err != nil {
			return err
		}
		if fsys.fsInfo.FreeClusterCount != UnknownFreeCount {
			fsys.fsInfo.FreeClusterCount++
		}
	}
	return fsys.syncFsInfo()
}

func (fsys *FileSystem) zeroCluster(cluster uint32) error {
	startSector := int(fsys.bpb.ClusterToSector(cluster))
	zero := make([]byte, 512)
	for s := 0; s < int(fsys.bpb.SectorsPerCluster); s++ {
		if err := fsys.cache.Write(startSector+s, func(buf []byte) { copy(buf, zero) }); err != nil {
			return err
		}
	}
	return nil
}

func (fsys *FileSystem) syncFsInfo() error {
	return fsys.cache.Write(int(fsys.bpb.FsInfoSector), func(buf []byte) {
		copy(buf, fsys.fsInfo.Serialize())
	})
}
