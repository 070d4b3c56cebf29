package blockdev

import "os"

// File is a Device backed by a regular host file, for cmd/mkfs (which
// has no VirtIO bus to talk to, only a disk image to write) and for
// mounting a pre-built image from a test. Grounded on the same role
// biscuit's ufs.MkDisk plays for its host-side mkfs tool, narrowed to
// the read_block/write_block contract spec.md scopes Device to.
type File struct {
	f          *os.File
	blockCount int
}

// OpenFile opens (or creates, truncated to blockCount sectors) path as a
// File device.
func OpenFile(path string, blockCount int) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(blockCount) * SectorSize); err != nil {
		f.Close()
		return nil, err
	}
	return &File{f: f, blockCount: blockCount}, nil
}

func (d *File) BlockCount() int { return d.blockCount }

func (d *File) ReadBlock(id int, buf []byte) error {
	if id < 0 || id >= d.blockCount {
		return ErrOutOfRange
	}
	_, err := d.f.ReadAt(buf[:SectorSize], int64(id)*SectorSize)
	return err
}

func (d *File) WriteBlock(id int, buf []byte) error {
	if id < 0 || id >= d.blockCount {
		return ErrOutOfRange
	}
	_, err := d.f.WriteAt(buf[:SectorSize], int64(id)*SectorSize)
	return err
}

// Close flushes and closes the backing file.
func (d *File) Close() error { return d.f.Close() }
