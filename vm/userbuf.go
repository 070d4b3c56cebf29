package vm

import (
	"fmt"

	"github.com/jason-hue/rvos/config"
	"github.com/jason-hue/rvos/defs"
)

// pageSlice returns the tail of the frame backing va, from va's in-page
// offset to the end of the page. It is the no-page-fault analogue of
// biscuit's Userdmap8_inner (vm/as.go) — every user page here is already
// resident because segments are loaded eagerly, so there is no fault path
// to invoke, only a lookup that can fail with EFAULT if va is outside any
// mapped area.
func (as *AddressSpace) pageSlice(va uintptr) ([]byte, defs.Err_t) {
	vpn := uint64(va) >> config.PGSHIFT
	for _, a := range as.Areas {
		if a.Kind == Framed && vpn >= a.VpnStart && vpn < a.VpnEnd {
			tr := a.frames[vpn]
			off := int(va) & (config.PGSIZE - 1)
			return tr.Bytes()[off:], 0
		}
	}
	return nil, -defs.EFAULT
}

// CopyIn copies len(dst) bytes from user virtual address uva into dst,
// crossing page boundaries as needed. Mirrors biscuit's Vm_t.User2k.
func (as *AddressSpace) CopyIn(uva uintptr, dst []byte) defs.Err_t {
	for len(dst) > 0 {
		src, err := as.pageSlice(uva)
		if err != 0 {
			return err
		}
		n := copy(dst, src)
		dst = dst[n:]
		uva += uintptr(n)
	}
	return 0
}

// CopyOut copies src into user memory starting at uva. Mirrors biscuit's
// Vm_t.K2user.
func (as *AddressSpace) CopyOut(uva uintptr, src []byte) defs.Err_t {
	for len(src) > 0 {
		dst, err := as.pageSlice(uva)
		if err != 0 {
			return err
		}
		n := copy(dst, src)
		src = src[n:]
		uva += uintptr(n)
	}
	return 0
}

// CopyInString reads a NUL-terminated string from user memory, up to
// lenmax bytes, mirroring biscuit's Vm_t.Userstr.
func (as *AddressSpace) CopyInString(uva uintptr, lenmax int) (string, defs.Err_t) {
	var out []byte
	for len(out) < lenmax {
		chunk, err := as.pageSlice(uva)
		if err != 0 {
			return "", err
		}
		for i, c := range chunk {
			if c == 0 {
				return string(append(out, chunk[:i]...)), 0
			}
			if len(out)+i >= lenmax {
				return "", -defs.ENAMETOOLONG
			}
		}
		out = append(out, chunk...)
		uva += uintptr(len(chunk))
	}
	return "", -defs.ENAMETOOLONG
}

// ReadN reads n (<=8) little-endian bytes from user memory as an integer,
// mirroring biscuit's Vm_t.Userreadn.
func (as *AddressSpace) ReadN(uva uintptr, n int) (uint64, defs.Err_t) {
	if n > 8 {
		panic(fmt.Sprintf("vm: ReadN of %d bytes exceeds register width", n))
	}
	var buf [8]byte
	if err := as.CopyIn(uva, buf[:n]); err != 0 {
		return 0, err
	}
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(buf[i]) << (8 * uint(i))
	}
	return v, 0
}
