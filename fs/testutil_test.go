package fs

import (
	"encoding/binary"
	"testing"

	"github.com/jason-hue/rvos/blockdev"
)

// newTestVolume builds a minimal, valid FAT32 image in memory: one FAT
// copy, one sector per cluster, 512-byte sectors, reserved sectors = 32,
// FsInfo at sector 1, root directory at cluster 2 (empty, end-of-chain).
// totalClusters sizes the data region; the FAT region is sized to match.
func newTestVolume(t *testing.T, totalClusters uint32) (*FileSystem, *blockdev.Memory) {
	t.Helper()
	const bytesPerSector = 512
	const sectorsPerCluster = 1
	const reservedSectors = 32
	const numFATs = 1

	fatEntries := totalClusters + 2
	fatBytes := fatEntries * 4
	sectorsPerFat := (fatBytes + bytesPerSector - 1) / bytesPerSector

	totalSectors := reservedSectors + numFATs*sectorsPerFat + totalClusters*sectorsPerCluster
	dev := blockdev.NewMemory(int(totalSectors) + 8)

	boot := make([]byte, 512)
	le := binary.LittleEndian
	le.PutUint16(boot[11:13], bytesPerSector)
	boot[13] = sectorsPerCluster
	le.PutUint16(boot[14:16], reservedSectors)
	boot[16] = numFATs
	le.PutUint32(boot[32:36], totalSectors)
	le.PutUint16(boot[22:24], 0) // sectors_per_fat_16 == 0 => FAT32
	le.PutUint32(boot[36:40], sectorsPerFat)
	le.PutUint32(boot[44:48], 2) // root dir first cluster
	le.PutUint16(boot[48:50], 1) // FsInfo sector
	if err := dev.WriteBlock(0, boot); err != nil {
		t.Fatalf("write boot sector: %v", err)
	}

	fi := &FsInfo{FreeClusterCount: totalClusters - 1, NextFreeCluster: 3}
	if err := dev.WriteBlock(1, fi.Serialize()); err != nil {
		t.Fatalf("write fsinfo: %v", err)
	}

	// Mark cluster 2 (root dir) end-of-chain in the primary FAT.
	fatSectorBuf := make([]byte, 512)
	le.PutUint32(fatSectorBuf[8:12], fatEntryEndOfChain) // cluster 2 is at byte offset 8
	if err := dev.WriteBlock(int(reservedSectors), fatSectorBuf); err != nil {
		t.Fatalf("write fat sector: %v", err)
	}

	fsys, err := Mount(dev)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	return fsys, dev
}
