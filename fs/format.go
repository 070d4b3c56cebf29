package fs

import (
	"encoding/binary"

	"github.com/jason-hue/rvos/blockdev"
)

// FormatOptions parameterizes Format the way a real mkfs.fat would take
// flags; defaults match the single geometry this kernel's cmd/mkfs tool
// needs (spec.md assumes 512-byte sectors throughout).
type FormatOptions struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
}

// DefaultFormatOptions is a reasonable default geometry for a small
// skeleton filesystem image.
var DefaultFormatOptions = FormatOptions{
	BytesPerSector:    512,
	SectorsPerCluster: 1,
	ReservedSectors:   32,
}

// Format lays down a fresh FAT32 volume across every sector of dev: boot
// sector, FsInfo sector, a zeroed FAT with cluster 2 (the root directory)
// marked end-of-chain, and a zeroed root-directory cluster. It then
// mounts and returns the result, the way biscuit's ufs.MkDisk hands back
// a ready-to-use filesystem handle for mkfs's addfiles step to populate.
func Format(dev blockdev.Device, opts FormatOptions) (*FileSystem, error) {
	if opts.BytesPerSector == 0 {
		opts = DefaultFormatOptions
	}
	totalSectors := uint32(dev.BlockCount())
	bps := uint32(opts.BytesPerSector)

	// Solve for sectorsPerFat such that reserved + sectorsPerFat (one FAT
	// copy) + data-clusters*sectorsPerCluster == totalSectors, where every
	// data cluster needs a 4-byte FAT entry.
	const numFATs = 1
	available := totalSectors - uint32(opts.ReservedSectors)
	// bytesForFat + dataBytes = available*bps, dataBytes = clusters*cps,
	// bytesForFat = ceil((clusters+2)*4/bps)*bps (rounded to whole
	// sectors); approximate then correct downward until it fits.
	cps := uint32(opts.SectorsPerCluster) * bps
	clusters := (available * bps) / (cps + 4)
	var sectorsPerFat uint32
	for {
		fatBytes := (clusters + 2) * 4
		sectorsPerFat = (fatBytes + bps - 1) / bps
		used := numFATs*sectorsPerFat + clusters*uint32(opts.SectorsPerCluster)
		if used <= available || clusters == 0 {
			break
		}
		clusters--
	}

	boot := make([]byte, opts.BytesPerSector)
	le := binary.LittleEndian
	le.PutUint16(boot[11:13], opts.BytesPerSector)
	boot[13] = opts.SectorsPerCluster
	le.PutUint16(boot[14:16], opts.ReservedSectors)
	boot[16] = numFATs
	le.PutUint32(boot[32:36], totalSectors)
	le.PutUint16(boot[22:24], 0)
	le.PutUint32(boot[36:40], sectorsPerFat)
	le.PutUint32(boot[44:48], 2)
	le.PutUint16(boot[48:50], 1)
	if err := dev.WriteBlock(0, boot); err != nil {
		return nil, err
	}

	fi := &FsInfo{FreeClusterCount: clusters - 1, NextFreeCluster: 3}
	if err := dev.WriteBlock(1, fi.Serialize()); err != nil {
		return nil, err
	}

	fatSector0 := make([]byte, opts.BytesPerSector)
	le.PutUint32(fatSector0[8:12], fatEntryEndOfChain)
	if err := dev.WriteBlock(int(opts.ReservedSectors), fatSector0); err != nil {
		return nil, err
	}
	zero := make([]byte, opts.BytesPerSector)
	for s := uint32(1); s < sectorsPerFat; s++ {
		if err := dev.WriteBlock(int(opts.ReservedSectors+uint16(s)), zero); err != nil {
			return nil, err
		}
	}

	firstDataSector := uint32(opts.ReservedSectors) + numFATs*sectorsPerFat
	for s := uint32(0); s < uint32(opts.SectorsPerCluster); s++ {
		if err := dev.WriteBlock(int(firstDataSector+s), zero); err != nil {
			return nil, err
		}
	}

	return Mount(dev)
}
