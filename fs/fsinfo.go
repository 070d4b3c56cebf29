package fs

import (
	"encoding/binary"
	"fmt"
)

// FsInfo signatures, per spec.md §4.6 and the standard FAT32 FSInfo sector
// layout original_source/os/src/fatfs/boot_sector.rs mirrors.
const (
	fsInfoLeadSig  uint32 = 0x41615252
	fsInfoStrucSig uint32 = 0x61417272
	fsInfoTrailSig uint32 = 0xAA550000

	// UnknownFreeCount marks FreeClusterCount as not-yet-computed; a
	// mount must fall back to a full FAT scan to learn the real count.
	UnknownFreeCount uint32 = 0xFFFFFFFF
)

// FsInfo is the FAT32 FSInfo sector: a free-cluster-count cache and a
// next-free-cluster allocation hint, refreshed on every allocation/free so
// a clean unmount leaves it accurate (spec.md §4.6 "FsInfo sector").
type FsInfo struct {
	FreeClusterCount uint32
	NextFreeCluster  uint32
}

// ParseFsInfo validates the three magic signatures and extracts the free
// count / next-free hint, treating 0xFFFFFFFF as "unknown" and replacing a
// reserved (0/1) hint with 2. A hint past the end of the FAT is returned
// as read; AllocCluster starts from cluster 2 in that case.
func ParseFsInfo(sector []byte) (*FsInfo, error) {
	if len(sector) < 512 {
		return nil, fmt.Errorf("fs: FsInfo sector too short: %d bytes", len(sector))
	}
	le := binary.LittleEndian
	lead := le.Uint32(sector[0:4])
	struc := le.Uint32(sector[484:488])
	trail := le.Uint32(sector[508:512])
	if lead != fsInfoLeadSig || struc != fsInfoStrucSig || trail != fsInfoTrailSig {
		return nil, fmt.Errorf("fs: %w: bad FsInfo signature (lead=%#x struc=%#x trail=%#x)",
			ErrCorruptedFileSystem, lead, struc, trail)
	}
	fi := &FsInfo{
		FreeClusterCount: le.Uint32(sector[488:492]),
		NextFreeCluster:  le.Uint32(sector[492:496]),
	}
	if fi.NextFreeCluster < 2 {
		fi.NextFreeCluster = 2
	}
	return fi, nil
}

// Serialize writes fi back into a full 512-byte FsInfo sector, preserving
// the reserved regions as zero (real FAT32 volumes carry a boot-code stub
// in bytes 4..484 that this kernel never generates or needs to read back).
func (fi *FsInfo) Serialize() []byte {
	sector := make([]byte, 512)
	le := binary.LittleEndian
	le.PutUint32(sector[0:4], fsInfoLeadSig)
	le.PutUint32(sector[484:488], fsInfoStrucSig)
	le.PutUint32(sector[488:492], fi.FreeClusterCount)
	le.PutUint32(sector[492:496], fi.NextFreeCluster)
	le.PutUint32(sector[508:512], fsInfoTrailSig)
	return sector
}
