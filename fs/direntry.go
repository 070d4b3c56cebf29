package fs

import (
	"encoding/binary"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Raw 32-byte directory entry layout, per spec.md §4.6 "Directory entry"
// and original_source/os/src/fatfs/dir_entry.rs.
const (
	dirEntrySize = 32

	attrReadOnly = 0x01
	attrHidden   = 0x02
	attrSystem   = 0x04
	attrVolumeID = 0x08
	attrDirectory = 0x10
	attrArchive  = 0x20
	attrLFN      = attrReadOnly | attrHidden | attrSystem | attrVolumeID

	lfnLastEntryFlag = 0x40
	entryFree        = 0x00
	entryDeleted     = 0xE5
)

// utf16leCodec is this kernel's one use of golang.org/x/text: converting
// long file names to and from the UTF-16LE code units FAT32's LFN entries
// store (spec.md §4.6's "UCS-2" name field), rather than hand-rolling a
// surrogate-pair splitter over unicode/utf16.
var utf16leCodec = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

func utf16Encode(s string) ([]uint16, error) {
	enc := utf16leCodec.NewEncoder()
	b, _, err := transform.Bytes(enc, []byte(s))
	if err != nil {
		return nil, err
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return units, nil
}

func utf16Decode(units []uint16) (string, error) {
	b := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[i*2:], u)
	}
	dec := utf16leCodec.NewDecoder()
	out, _, err := transform.Bytes(dec, b)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", err
	}
	return string(out), nil
}

// rawSFN is the 32-byte short-name directory entry.
type rawSFN struct {
	Name           [11]byte
	Attr           byte
	FirstClusterHi uint16
	FirstClusterLo uint16
	FileSize       uint32
}

func parseRawSFN(b []byte) rawSFN {
	var r rawSFN
	copy(r.Name[:], b[0:11])
	r.Attr = b[11]
	r.FirstClusterHi = binary.LittleEndian.Uint16(b[20:22])
	r.FirstClusterLo = binary.LittleEndian.Uint16(b[26:28])
	r.FileSize = binary.LittleEndian.Uint32(b[28:32])
	return r
}

func (r rawSFN) firstCluster() uint32 {
	return uint32(r.FirstClusterHi)<<16 | uint32(r.FirstClusterLo)
}

func serializeRawSFN(name [11]byte, attr byte, firstCluster uint32, size uint32) []byte {
	b := make([]byte, dirEntrySize)
	copy(b[0:11], name[:])
	b[11] = attr
	binary.LittleEndian.PutUint16(b[20:22], uint16(firstCluster>>16))
	binary.LittleEndian.PutUint16(b[26:28], uint16(firstCluster))
	binary.LittleEndian.PutUint32(b[28:32], size)
	return b
}

// parseLFNUnits extracts the 13 UTF-16 code units of one 32-byte long-name
// fragment, which are spread across three ranges. A fragment also holds an
// order byte (with the 0x40 flag set on the logically last fragment of a
// run, which is written first on disk) and a checksum tying the run to its
// trailing SFN entry.
func parseLFNUnits(b []byte) []uint16 {
	units := make([]uint16, 0, 13)
	readRange := func(off, n int) {
		for i := 0; i < n; i++ {
			units = append(units, binary.LittleEndian.Uint16(b[off+i*2:]))
		}
	}
	readRange(1, 5)
	readRange(14, 6)
	readRange(28, 2)
	return units
}

func serializeLFNEntry(order byte, checksum byte, units [13]uint16) []byte {
	b := make([]byte, dirEntrySize)
	b[0] = order
	b[11] = attrLFN
	b[13] = checksum
	writeRange := func(off, start, n int) {
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint16(b[off+i*2:], units[start+i])
		}
	}
	writeRange(1, 0, 5)
	writeRange(14, 5, 6)
	writeRange(28, 11, 2)
	return b
}

// DirEntry is one logical (LFN-resolved) directory entry.
type DirEntry struct {
	Name         string
	IsDir        bool
	FirstCluster uint32
	Size         uint32

	// entryOffset is the byte offset, within the parent directory's data
	// stream, of this entry's trailing SFN record — used to write the
	// size/first-cluster back and to mark the run deleted on Remove.
	entryOffset int
	// lfnCount is how many LFN fragment entries precede the SFN record,
	// so Remove/rewrite can reach the whole run.
	lfnCount int
	shortName [11]byte
}

// readDirStream reads every 32-byte slot across a cluster chain in order,
// concatenating ReadCluster results (spec.md's directory stream is just
// an ordinary cluster chain for FAT32, root included).
func (fsys *FileSystem) readDirStream(firstCluster uint32) ([]byte, []uint32, error) {
	chain, err := fsys.ClusterChain(firstCluster)
	if err != nil {
		return nil, nil, err
	}
	var out []byte
	for _, c := range chain {
		data, err := fsys.ReadCluster(c)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, data...)
	}
	return out, chain, nil
}

// ReadDir returns the live (non-deleted) entries of the directory rooted
// at firstCluster, resolving LFN runs against their trailing SFN and
// discarding runs whose checksum does not match (spec.md §4.6: "discard
// on checksum mismatch or incomplete chain").
func (fsys *FileSystem) ReadDir(firstCluster uint32) ([]DirEntry, error) {
	data, _, err := fsys.readDirStream(firstCluster)
	if err != nil {
		return nil, err
	}
	var entries []DirEntry
	var pendingUnits [][]uint16
	var pendingChecksum byte
	var haveChecksum bool
	// nextOrder is the order number the next fragment of the pending run
	// must carry; it reaches 0 once the run is complete.
	var nextOrder byte

	resetPending := func() {
		pendingUnits = nil
		haveChecksum = false
		nextOrder = 0
	}

	for off := 0; off+dirEntrySize <= len(data); off += dirEntrySize {
		rec := data[off : off+dirEntrySize]
		if rec[0] == entryFree {
			break
		}
		if rec[0] == entryDeleted {
			resetPending()
			continue
		}
		if rec[11] == attrLFN {
			order := rec[0] &^ lfnLastEntryFlag
			checksum := rec[13]
			units := parseLFNUnits(rec)
			if rec[0]&lfnLastEntryFlag != 0 {
				// First physical fragment of a new run.
				resetPending()
				pendingChecksum = checksum
				haveChecksum = true
			} else if !haveChecksum || checksum != pendingChecksum || order != nextOrder {
				// Not the next fragment of the pending run: drop both.
				resetPending()
				continue
			}
			// Entries arrive highest-order-first; prepend so the final
			// slice is in reading order.
			pendingUnits = append([][]uint16{units}, pendingUnits...)
			nextOrder = order - 1
			continue
		}
		sfn := parseRawSFN(rec)
		if sfn.Attr&attrVolumeID != 0 {
			resetPending()
			continue
		}
		name := ""
		if haveChecksum && nextOrder == 0 && lfnChecksum(sfn.Name) == pendingChecksum && len(pendingUnits) > 0 {
			var flat []uint16
			for _, u := range pendingUnits {
				flat = append(flat, u...)
			}
			// Trim the 0xFFFF padding / trailing NUL the last fragment
			// carries when the name isn't a multiple of 13 units long.
			for len(flat) > 0 && (flat[len(flat)-1] == 0 || flat[len(flat)-1] == 0xFFFF) {
				flat = flat[:len(flat)-1]
			}
			decoded, derr := utf16Decode(flat)
			if derr == nil {
				name = decoded
			}
		}
		lfnCount := len(pendingUnits)
		if name == "" {
			name = sfnToDisplayName(sfn.Name)
			lfnCount = 0
		}
		entries = append(entries, DirEntry{
			Name:         name,
			IsDir:        sfn.Attr&attrDirectory != 0,
			FirstCluster: sfn.firstCluster(),
			Size:         sfn.FileSize,
			entryOffset:  off,
			lfnCount:     lfnCount,
			shortName:    sfn.Name,
		})
		resetPending()
	}
	return entries, nil
}

func sfnToDisplayName(sfn [11]byte) string {
	base := strings.TrimRight(string(sfn[0:8]), " ")
	ext := strings.TrimRight(string(sfn[8:11]), " ")
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// namesEqualFold compares FAT names the way lookup does: case-insensitive
// under Unicode simple case folding (strings.EqualFold), applied the same
// way to LFN and SFN forms.
func namesEqualFold(a, b string) bool {
	return strings.EqualFold(a, b)
}
