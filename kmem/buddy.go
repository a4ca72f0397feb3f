package kmem

import "sync"

// buddyMaxOrders is the number of order classes the spec names (32),
// though any concrete arena only populates the orders it can represent
// (order i holds blocks of buddyMinBlock<<i bytes).
const buddyMaxOrders = 32

// buddyMinBlock is the smallest block the buddy allocator hands out; it is
// also the allocator's alignment guarantee.
const buddyMinBlock = 4096

// buddyAllocator is a standard power-of-two split/merge allocator serving
// requests too large (or too alignment-hungry) for any slab bank. Unlike
// the slab banks, free blocks are not threaded together with an embedded
// pointer: detecting whether a block's buddy is free is a coalescing
// decision that needs O(1) membership testing, not just O(1) removal of an
// arbitrary element, so each order keeps its free offsets in a set.
type buddyAllocator struct {
	mu       sync.Mutex
	arena    []byte
	base     int32
	maxOrder int
	free     [buddyMaxOrders]map[int32]struct{}
}

func newBuddyAllocator(size int) *buddyAllocator {
	b := &buddyAllocator{arena: make([]byte, size)}
	for i := range b.free {
		b.free[i] = make(map[int32]struct{})
	}
	order := 0
	blockSize := buddyMinBlock
	for blockSize*2 <= size && order+1 < buddyMaxOrders {
		order++
		blockSize *= 2
	}
	b.maxOrder = order
	b.free[order][0] = struct{}{}
	return b
}

func orderBlockSize(order int) int { return buddyMinBlock << uint(order) }

// orderFor returns the smallest order whose block size is >= size.
func orderFor(size int) int {
	order := 0
	blockSize := buddyMinBlock
	for blockSize < size {
		blockSize *= 2
		order++
	}
	return order
}

// alloc finds the smallest available block of order >= the requested
// order, splitting larger blocks down as needed. Returns ok=false if no
// block of sufficient size is free.
func (b *buddyAllocator) alloc(size int) (offset int32, order int, data []byte, ok bool) {
	want := orderFor(size)
	if want > b.maxOrder {
		return 0, 0, nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	src := -1
	for o := want; o <= b.maxOrder; o++ {
		if len(b.free[o]) > 0 {
			src = o
			break
		}
	}
	if src == -1 {
		return 0, 0, nil, false
	}

	var off int32
	for o := range b.free[src] {
		off = o
		break
	}
	delete(b.free[src], off)

	for o := src; o > want; o-- {
		half := int32(orderBlockSize(o - 1))
		buddy := off + half
		b.free[o-1][buddy] = struct{}{}
	}

	blockSize := orderBlockSize(want)
	return off, want, b.arena[off : int(off)+blockSize : int(off)+blockSize], true
}

// free returns the block at offset/order to its free list, coalescing
// with its buddy (and that buddy's buddy, and so on) whenever the buddy is
// also free.
func (b *buddyAllocator) free(offset int32, order int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	off := offset
	for o := order; o < b.maxOrder; o++ {
		blockSize := int32(orderBlockSize(o))
		buddy := off ^ blockSize
		if _, free := b.free[o][buddy]; !free {
			b.free[o][off] = struct{}{}
			return
		}
		delete(b.free[o], buddy)
		if buddy < off {
			off = buddy
		}
	}
	b.free[b.maxOrder][off] = struct{}{}
}
