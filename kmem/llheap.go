package kmem

import (
	"encoding/binary"
	"sync"
)

// holeHeaderSize is the header every hole in the free list carries: a
// uint32 total size (header included) followed by an int32 offset to the
// next hole in address order, or holeNone.
const holeHeaderSize = 8

const holeNone = -1

// holeHeap is the build-config alternative to slab+buddy: the whole arena
// is one free list of holes kept sorted by address, walked first-fit, with
// adjacent holes coalesced on free. It trades the slab banks' O(1)
// alloc/free for simplicity and zero internal fragmentation between
// differently-sized live allocations.
type holeHeap struct {
	mu    sync.Mutex
	arena []byte
	head  int32 // offset of first hole, sorted ascending, or holeNone
}

func newHoleHeap(size int) *holeHeap {
	h := &holeHeap{arena: make([]byte, size), head: 0}
	binary.LittleEndian.PutUint32(h.arena[0:4], uint32(size))
	binary.LittleEndian.PutUint32(h.arena[4:8], uint32(holeNone))
	return h
}

func (h *holeHeap) holeSize(off int32) uint32 {
	return binary.LittleEndian.Uint32(h.arena[off:])
}

func (h *holeHeap) holeNext(off int32) int32 {
	return int32(binary.LittleEndian.Uint32(h.arena[off+4:]))
}

func (h *holeHeap) setHole(off int32, size uint32, next int32) {
	binary.LittleEndian.PutUint32(h.arena[off:], size)
	binary.LittleEndian.PutUint32(h.arena[off+4:], uint32(next))
}

// alloc reserves a block of at least size payload bytes plus a
// holeHeaderSize header, first-fit. Returns the block's total size (header + payload, possibly larger
// than requested if the hole could not be split) so free can be told how
// much to return.
func (h *holeHeap) alloc(size int) (offset int32, total int, data []byte, ok bool) {
	need := uint32(size + holeHeaderSize)
	const minSplit = 32

	h.mu.Lock()
	defer h.mu.Unlock()

	var prev int32 = holeNone
	cur := h.head
	for cur != holeNone {
		cs := h.holeSize(cur)
		next := h.holeNext(cur)
		if cs >= need {
			if cs >= need+minSplit {
				remainder := cur + int32(need)
				h.setHole(remainder, cs-need, next)
				if prev == holeNone {
					h.head = remainder
				} else {
					h.setHole(prev, h.holeSize(prev), remainder)
				}
				return cur, int(need), h.arena[int(cur)+holeHeaderSize : int(cur)+int(need) : int(cur)+int(need)], true
			}
			if prev == holeNone {
				h.head = next
			} else {
				h.setHole(prev, h.holeSize(prev), next)
			}
			return cur, int(cs), h.arena[int(cur)+holeHeaderSize : int(cur)+int(cs) : int(cur)+int(cs)], true
		}
		prev = cur
		cur = next
	}
	return 0, 0, nil, false
}

// free returns the block at offset, of the given total size, to the hole
// list, coalescing with an address-adjacent predecessor and/or successor
// hole.
func (h *holeHeap) free(offset int32, total int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	size := uint32(total)
	end := offset + int32(size)

	var prev int32 = holeNone
	cur := h.head
	for cur != holeNone && cur < offset {
		prev = cur
		cur = h.holeNext(cur)
	}
	// cur is the first hole at or after offset (successor candidate), or
	// holeNone; prev is the hole immediately before it.

	if cur != holeNone && end == cur {
		// Merge forward into cur.
		size += h.holeSize(cur)
		cur = h.holeNext(cur)
	}

	mergedPrev := false
	if prev != holeNone && prev+int32(h.holeSize(prev)) == offset {
		// Merge backward into prev.
		size += h.holeSize(prev)
		offset = prev
		mergedPrev = true
	}

	h.setHole(offset, size, cur)
	if !mergedPrev {
		if prev == holeNone {
			h.head = offset
		} else {
			h.setHole(prev, h.holeSize(prev), offset)
		}
	}
	// else: prev's slot was reused as the merged hole itself; whatever
	// pointed at prev still correctly points at offset==prev.
}
