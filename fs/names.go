package fs

import (
	"fmt"
	"strings"
)

// lfnChecksum computes the 8-bit checksum an LFN entry run stores, over
// the 11-byte short name it belongs to (spec.md §4.6 "checksum algorithm:
// chksum = (chksum<<7)+(chksum>>1)+byte, wrapping uint8"), grounded on
// original_source/os/src/fatfs/lfn.rs's lfn_checksum.
func lfnChecksum(sfn [11]byte) uint8 {
	var sum uint8
	for _, b := range sfn {
		sum = (sum << 7) + (sum >> 1) + b
	}
	return sum
}

// bsdChecksum is the 16-bit checksum used to build the checksum-form short
// name (spec.md §4.6 "PP<hex4>~N.EXT"), grounded on
// original_source/os/src/fatfs/lfn.rs's short-name generator. It runs over
// the long name's Unicode scalar values, matching the original's
// char-at-a-time iteration rather than UTF-16 code units.
func bsdChecksum(name string) uint16 {
	var sum uint16
	for _, r := range name {
		sum = (sum >> 1) + (sum << 15) + uint16(r)
	}
	return sum
}

var shortNameInvalid = " \"*+,/:;<=>?[\\]|"

func isValidShortNameChar(c byte) bool {
	if c < 0x20 || c == 0x7f {
		return false
	}
	return !strings.ContainsRune(shortNameInvalid, rune(c))
}

// splitBaseExt splits a long name into base/extension on the LAST dot, per
// spec.md's short-name derivation rule (a name with no dot has no
// extension; a name with a leading dot, e.g. ".bashrc", has an empty base
// and the remainder as extension, matching how the original treats it).
func splitBaseExt(name string) (base, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}

// buildShortNameCandidate uppercases and truncates base/ext into the fixed
// 11-byte SFN layout (8.3), reporting whether any character had to be
// dropped or truncated ("lossy"), which forces LFN-entry generation even
// when the base/ext individually fit.
func buildShortNameCandidate(base, ext string) (sfn [11]byte, lossy bool) {
	for i := range sfn {
		sfn[i] = ' '
	}
	put := func(s string, out []byte) bool {
		lossyLocal := false
		i := 0
		for _, r := range s {
			if i >= len(out) {
				lossyLocal = true
				break
			}
			c := byte(r)
			if r > 0x7f {
				c = '_'
				lossyLocal = true
			} else if !isValidShortNameChar(c) {
				c = '_'
				lossyLocal = true
			} else {
				c = upperASCII(c)
			}
			out[i] = c
			i++
		}
		return lossyLocal
	}
	if strings.ContainsAny(base, " ") {
		lossy = true
		base = strings.ReplaceAll(base, " ", "")
	}
	lossy = put(base, sfn[0:8]) || lossy
	lossy = put(ext, sfn[8:11]) || lossy
	return sfn, lossy
}

func upperASCII(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// shortNameFits reports whether base/ext need no truncation and contain
// only valid short-name characters once case-folded.
func shortNameFits(base, ext string) bool {
	if len(base) > 8 || len(ext) > 3 || len(base) == 0 {
		return false
	}
	for i := 0; i < len(base); i++ {
		if base[i] > 0x7f || !isValidShortNameChar(base[i]) || base[i] == ' ' {
			return false
		}
	}
	for i := 0; i < len(ext); i++ {
		if ext[i] > 0x7f || !isValidShortNameChar(ext[i]) {
			return false
		}
	}
	return true
}

// generateShortName produces an 8.3 short name for longName that does not
// collide with an existing entry, per spec.md §4.6's "short-name
// generation": try the bare uppercased form; then numeric-suffix forms
// BASE~N (truncating BASE as needed), probing N=1..4; then, if those all
// collide, the checksum form PP<hex4>~N.EXT, probing N=1..9.
func generateShortName(longName string, exists func(sfn [11]byte) bool) ([11]byte, error) {
	base, ext := splitBaseExt(longName)
	candidate, lossy := buildShortNameCandidate(base, ext)
	if !lossy && shortNameFits(base, ext) && !exists(candidate) {
		return candidate, nil
	}

	extSfn := candidate[8:11]
	for n := 1; n <= 4; n++ {
		suffix := fmt.Sprintf("~%d", n)
		baseLen := 8 - len(suffix)
		if baseLen < 1 {
			break
		}
		trimmed := trimToLen(candidate[0:8], baseLen)
		var sfn [11]byte
		copy(sfn[0:8], padSpaces(trimmed+suffix, 8))
		copy(sfn[8:11], extSfn)
		if !exists(sfn) {
			return sfn, nil
		}
	}

	sum := bsdChecksum(longName)
	hex := fmt.Sprintf("%04X", sum)
	for n := 1; n <= 9; n++ {
		suffix := fmt.Sprintf("~%d", n)
		prefixLen := 8 - len(hex) - len(suffix)
		if prefixLen < 0 {
			prefixLen = 0
		}
		prefix := trimToLen(candidate[0:8], prefixLen)
		var sfn [11]byte
		copy(sfn[0:8], padSpaces(prefix+hex+suffix, 8))
		copy(sfn[8:11], extSfn)
		if !exists(sfn) {
			return sfn, nil
		}
	}
	return [11]byte{}, ErrAlreadyExists
}

func trimToLen(b []byte, n int) string {
	s := strings.TrimRight(string(b), " ")
	if len(s) > n {
		s = s[:n]
	}
	return s
}

func padSpaces(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat(" ", n-len(s))
}
