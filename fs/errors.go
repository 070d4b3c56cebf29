package fs

import "errors"

// ErrCorruptedFileSystem covers boot-sector/FsInfo signature failures, per
// original_source/os/src/fatfs/fs.rs's FatError::CorruptedFileSystem.
var ErrCorruptedFileSystem = errors.New("fs: corrupted filesystem")

// ErrNotEnoughSpace is returned when cluster allocation exhausts the FAT
// without finding a free entry (original_source's FatError::NotEnoughSpace).
var ErrNotEnoughSpace = errors.New("fs: not enough space")

// ErrNotFound is returned when a path component cannot be located in its
// parent directory.
var ErrNotFound = errors.New("fs: not found")

// ErrAlreadyExists is returned by AppendEntry when the target name is already
// taken, and by the short-name generator when every numeric-suffix and
// checksum-suffix candidate collides.
var ErrAlreadyExists = errors.New("fs: already exists")

// ErrNotADirectory / ErrIsADirectory guard path traversal and open/create.
var ErrNotADirectory = errors.New("fs: not a directory")
var ErrIsADirectory = errors.New("fs: is a directory")

// ErrNameTooLong maps to -ENAMETOOLONG in errToErrno. No function in this
// package returns it: long names are not length-checked when an entry is
// created.
var ErrNameTooLong = errors.New("fs: name too long")
