package fs

import "fmt"

// lfnEntriesNeeded is how many 13-unit LFN fragments a UTF-16 name of this
// many code units needs.
func lfnEntriesNeeded(unitLen int) int {
	if unitLen == 0 {
		return 0
	}
	return (unitLen + 12) / 13
}

// buildLFNRun builds the on-disk 32-byte records for a long-name run,
// highest order first (the order FAT32 stores them in, immediately
// preceding the trailing SFN record), per spec.md §4.6 "order byte + 0x40
// last-entry flag".
func buildLFNRun(units []uint16, checksum byte) [][]byte {
	n := lfnEntriesNeeded(len(units))
	records := make([][]byte, n)
	for i := 0; i < n; i++ {
		var chunk [13]uint16
		for j := range chunk {
			chunk[j] = 0xFFFF
		}
		start := i * 13
		end := start + 13
		if end > len(units) {
			end = len(units)
		}
		copy(chunk[:], units[start:end])
		if end-start < 13 && end == len(units) {
			chunk[end-start] = 0
		}
		order := byte(i + 1)
		if i == n-1 {
			order |= lfnLastEntryFlag
		}
		// Fragment i holds units[13*i : 13*i+13]; storing it at index
		// n-1-i puts the highest order number first, matching on-disk
		// order.
		records[n-1-i] = serializeLFNEntry(order, checksum, chunk)
	}
	return records
}

// entryExists checks whether sfn collides with any live short name in the
// directory's current entry list.
func entryExists(entries []DirEntry, sfn [11]byte) bool {
	for _, e := range entries {
		if e.shortName == sfn {
			return true
		}
	}
	return false
}

// AppendEntry creates a new directory entry named longName in the
// directory rooted at dirCluster, allocating a fresh short name and
// writing the LFN run + trailing SFN record into the first run of free
// (or deleted) slots big enough to hold it, extending the directory's
// cluster chain if none is found (spec.md §4.6 "Directory creation").
func (fsys *FileSystem) AppendEntry(dirCluster uint32, longName string, isDir bool, firstCluster uint32, size uint32) error {
	existing, err := fsys.ReadDir(dirCluster)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if namesEqualFold(e.Name, longName) {
			return ErrAlreadyExists
		}
	}
	sfn, err := generateShortName(longName, func(cand [11]byte) bool { return entryExists(existing, cand) })
	if err != nil {
		return err
	}
	units, err := utf16Encode(longName)
	if err != nil {
		return fmt.Errorf("fs: encoding long name: %w", err)
	}
	checksum := lfnChecksum(sfn)
	records := buildLFNRun(units, checksum)

	attr := byte(attrArchive)
	if isDir {
		attr = attrDirectory
	}
	records = append(records, serializeRawSFN(sfn, attr, firstCluster, size))

	return fsys.writeRecordsIntoDir(dirCluster, records)
}

// writeRecordsIntoDir finds a run of contiguous free/deleted slots large
// enough for records (scanning the existing chain, extending it with a
// freshly allocated, zeroed cluster if none is found) and writes them in
// order.
func (fsys *FileSystem) writeRecordsIntoDir(dirCluster uint32, records [][]byte) error {
	data, chain, err := fsys.readDirStream(dirCluster)
	if err != nil {
		return err
	}
	need := len(records)
	run := 0
	startOff := -1
	for off := 0; off+dirEntrySize <= len(data); off += dirEntrySize {
		if data[off] == entryFree || data[off] == entryDeleted {
			if run == 0 {
				startOff = off
			}
			run++
			if run == need {
				break
			}
		} else {
			run = 0
			startOff = -1
		}
	}
	if run < need {
		last := chain[len(chain)-1]
		newCluster, err := fsys.AllocCluster(last)
		if err != nil {
			return err
		}
		startOff = len(data)
		data = append(data, make([]byte, fsys.bpb.BytesPerCluster())...)
		chain = append(chain, newCluster)
	}
	for i, rec := range records {
		copy(data[startOff+i*dirEntrySize:startOff+(i+1)*dirEntrySize], rec)
	}
	return fsys.writeDirStream(chain, data)
}

// writeDirStream writes data back across chain's clusters, one
// WriteCluster per cluster.
func (fsys *FileSystem) writeDirStream(chain []uint32, data []byte) error {
	bpc := fsys.bpb.BytesPerCluster()
	for i, c := range chain {
		start := i * bpc
		end := start + bpc
		if end > len(data) {
			end = len(data)
		}
		buf := data[start:end]
		if len(buf) < bpc {
			padded := make([]byte, bpc)
			copy(padded, buf)
			buf = padded
		}
		if err := fsys.WriteCluster(c, buf); err != nil {
			return err
		}
	}
	return nil
}

// RemoveEntry deletes the named entry from the directory rooted at
// dirCluster: it marks every record in its LFN run plus its trailing SFN
// record as deleted (0xE5), then frees the entry's own FAT chain and
// credits the FsInfo free count — unlike original_source, which marks the
// directory slot deleted but leaves the data cluster chain allocated
// forever (spec.md §9's second flagged bug).
func (fsys *FileSystem) RemoveEntry(dirCluster uint32, name string) error {
	entries, err := fsys.ReadDir(dirCluster)
	if err != nil {
		return err
	}
	var target *DirEntry
	for i := range entries {
		if namesEqualFold(entries[i].Name, name) {
			target = &entries[i]
			break
		}
	}
	if target == nil {
		return ErrNotFound
	}
	data, chain, err := fsys.readDirStream(dirCluster)
	if err != nil {
		return err
	}
	firstRecord := target.entryOffset - target.lfnCount*dirEntrySize
	for off := firstRecord; off <= target.entryOffset; off += dirEntrySize {
		data[off] = entryDeleted
	}
	if err := fsys.writeDirStream(chain, data); err != nil {
		return err
	}
	return fsys.FreeChain(target.FirstCluster)
}
