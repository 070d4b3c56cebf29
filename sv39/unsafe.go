package sv39

import "unsafe"

// bytesAsPteTable reinterprets a physical frame's byte buffer as a
// 512-entry PTE table. Mirrors biscuit's mem.pg2pmap (vm/mem.go), adapted
// to Sv39's 8-byte PTEs instead of x86's.
func bytesAsPteTable(b []byte) *[entriesPerTable]Pte {
	return (*[entriesPerTable]Pte)(unsafe.Pointer(&b[0]))
}
