package kmem

import (
	"encoding/binary"
	"sync"
)

// slabSizes are the fixed block sizes the spec names: 64, 128, 256, 512,
// 1024, 2048, 4096 bytes. A request routes to the smallest bank whose
// block size satisfies both the requested size and alignment.
var slabSizes = [...]int{64, 128, 256, 512, 1024, 2048, 4096}

const slabNone = -1

// slabBank is a singly-linked free list of same-sized blocks carved out of
// a contiguous arena. The link to the next free block is stored as a
// little-endian int32 offset in the first four bytes of the free block
// itself, mirroring the original's embedded-pointer free list without
// requiring unsafe: an offset into a slice carries no GC obligations and
// cannot dangle independently of the arena it indexes.
type slabBank struct {
	mu        sync.Mutex
	blockSize int
	arena     []byte
	freeHead  int32 // offset of first free block, or slabNone
	blocks    int
}

func newSlabBank(blockSize, count int) *slabBank {
	b := &slabBank{
		blockSize: blockSize,
		arena:     make([]byte, blockSize*count),
		blocks:    count,
		freeHead:  slabNone,
	}
	for i := count - 1; i >= 0; i-- {
		next := b.freeHead
		binary.LittleEndian.PutUint32(b.arena[i*blockSize:], uint32(next))
		b.freeHead = int32(i * blockSize)
	}
	return b
}

// alloc returns the offset of a free block and the slice view over it, or
// ok=false if the bank is exhausted.
func (b *slabBank) alloc() (offset int32, data []byte, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.freeHead == slabNone {
		return 0, nil, false
	}
	off := b.freeHead
	b.freeHead = int32(binary.LittleEndian.Uint32(b.arena[off:]))
	return off, b.arena[off : int(off)+b.blockSize : int(off)+b.blockSize], true
}

// free returns the block at offset to the free list.
func (b *slabBank) free(offset int32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	binary.LittleEndian.PutUint32(b.arena[offset:], uint32(b.freeHead))
	b.freeHead = offset
}

func (b *slabBank) capacity() int { return b.blocks }
