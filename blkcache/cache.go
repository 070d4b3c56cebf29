// Package blkcache sits between the FAT32 layer and the block device,
// caching 512-byte sectors with dirty bits (spec.md §4.5, §3 "Block
// cache"). Grounded on biscuit's fs/blk.go Bdev_block_t/BlkList_t idiom
// of one struct per cached block guarding its own state with an embedded
// mutex, generalized from biscuit's page-frame-backed blocks (biscuit
// caches 4096-byte pages shared with the VM subsystem) to a plain
// []byte buffer, since this kernel's block cache is not sharing memory
// with any page-table mapping — spec.md's Non-goals exclude the
// log/journal machinery biscuit's Bdev_block_t ultimately serves, so
// this is a narrower, write-through-only design (spec.md §4.5: "write:
// ...immediately flush to device (write-through in this design)").
package blkcache

import (
	"sync"

	"github.com/jason-hue/rvos/blockdev"
)

// Block is one cached 512-byte sector plus its dirty flag.
type Block struct {
	id    int
	data  [blockdev.SectorSize]byte
	dirty bool
}

// Bytes exposes the block's buffer for in-place reads. Callers must not
// retain the slice past the next cache operation on this block.
func (b *Block) Bytes() []byte { return b.data[:] }

// DefaultThreshold is the resident-block-count bound spec.md §4.5
// suggests ("e.g. 100").
const DefaultThreshold = 100

// Cache is the block cache. Not safe for concurrent use without external
// locking beyond its own mutex guarding the map — this kernel's
// big-kernel-lock discipline (spec.md §7) means only one FS operation is
// ever in flight, so the mutex here is a second line of defense, not load
// -bearing concurrency control.
type Cache struct {
	mu        sync.Mutex
	dev       blockdev.Device
	blocks    map[int]*Block
	threshold int
}

// New builds a cache over dev with threshold as the resident-block bound
// (DefaultThreshold if threshold <= 0).
func New(dev blockdev.Device, threshold int) *Cache {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Cache{dev: dev, blocks: make(map[int]*Block), threshold: threshold}
}

// residentLocked ensures id is in the cache, loading it from the device
// if it is not. Caller holds c.mu.
func (c *Cache) residentLocked(id int) (*Block, error) {
	if b, ok := c.blocks[id]; ok {
		return b, nil
	}
	b := &Block{id: id}
	if err := c.dev.ReadBlock(id, b.data[:]); err != nil {
		return nil, err
	}
	c.blocks[id] = b
	return b, nil
}

// Read ensures id is resident and returns a copy of its bytes.
func (c *Cache) Read(id int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := c.residentLocked(id)
	if err != nil {
		return nil, err
	}
	out := make([]byte, blockdev.SectorSize)
	copy(out, b.data[:])
	return out, nil
}

// Write ensures id is resident, invokes copyIn against the live buffer,
// marks it dirty, and immediately flushes to the device (write-through).
func (c *Cache) Write(id int, copyIn func(buf []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := c.residentLocked(id)
	if err != nil {
		return err
	}
	copyIn(b.data[:])
	b.dirty = true
	if err := c.dev.WriteBlock(id, b.data[:]); err != nil {
		return err
	}
	b.dirty = false
	return c.maybeFlushAllLocked()
}

// Sync flushes id if dirty (a write-through cache never actually leaves
// a block dirty between calls, but Sync is kept for the interface
// spec.md §4.5 names) and drops it from residency.
func (c *Cache) Sync(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.blocks[id]
	if !ok {
		return nil
	}
	if b.dirty {
		if err := c.dev.WriteBlock(id, b.data[:]); err != nil {
			return err
		}
	}
	delete(c.blocks, id)
	return nil
}

// SyncRange syncs every id in [start, end).
func (c *Cache) SyncRange(start, end int) error {
	for id := start; id < end; id++ {
		if err := c.Sync(id); err != nil {
			return err
		}
	}
	return nil
}

// maybeFlushAllLocked implements spec.md §4.5's bound: "when resident
// count exceeds a threshold, flush all dirty entries and clear". Since
// this cache is write-through, nothing is ever left dirty by the time
// this runs — the flush is really just the clear, but entries are still
// walked for a dirty write for robustness against any future non-write-
// through caller.
func (c *Cache) maybeFlushAllLocked() error {
	if len(c.blocks) <= c.threshold {
		return nil
	}
	for id, b := range c.blocks {
		if b.dirty {
			if err := c.dev.WriteBlock(id, b.data[:]); err != nil {
				return err
			}
		}
	}
	c.blocks = make(map[int]*Block)
	return nil
}

// Resident reports how many blocks are currently cached, for tests.
func (c *Cache) Resident() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.blocks)
}
