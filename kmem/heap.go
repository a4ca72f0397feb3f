package kmem

import (
	"github.com/blueos-go/kernel/kerrors"
)

// Variant selects which whole-heap strategy backs large/oversized
// allocations (or, for VariantHoles, every allocation): the slab+buddy
// combination, or the linked-list-of-holes alternative, mirroring the
// original's build-time config switch.
type Variant int

const (
	// VariantSlabBuddy routes small requests to fixed-size slab banks and
	// everything else to the buddy allocator. This is the default.
	VariantSlabBuddy Variant = iota
	// VariantHoles routes every request through a single linked-list-of-
	// holes allocator instead.
	VariantHoles
)

// blockKind records which backing allocator produced a Block, so Free and
// Realloc can route back to the right one without a type switch on every
// call.
type blockKind int

const (
	blockSlab blockKind = iota
	blockBuddy
	blockHole
)

// Block is the handle Heap.Alloc returns: an Arc-like strong pointer into
// the heap. It carries just enough bookkeeping for Free/Realloc to locate
// and return the backing bytes; callers should treat it opaquely and use
// Bytes to access the payload.
type Block struct {
	kind   blockKind
	bank   *slabBank // set when kind == blockSlab
	order  int       // set when kind == blockBuddy
	offset int32
	total  int // total bytes reserved, header included where relevant
	data   []byte
}

// Bytes returns the usable payload of the block.
func (b *Block) Bytes() []byte { return b.data }

// Heap is the kernel's allocation front-end: slab banks for fixed sizes,
// a buddy allocator for the overflow, or a single linked-list-of-holes
// allocator when configured with WithVariant(VariantHoles). Statistics
// are atomic counters, updated after the backing allocator that serviced
// the request has returned and released its own lock; they are not
// updated under that lock. Heap itself holds no lock of its own.
type Heap struct {
	variant Variant
	slabs   [len(slabSizes)]*slabBank
	buddy   *buddyAllocator
	holes   *holeHeap
	stats   Stats
}

// HeapOption configures a Heap at construction time, mirroring the
// functional-options idiom used across the kernel's other constructors.
type HeapOption interface {
	apply(*heapConfig)
}

type heapConfig struct {
	variant      Variant
	arenaBytes   int
	slabsPerBank int
}

type heapOptionFunc func(*heapConfig)

func (f heapOptionFunc) apply(c *heapConfig) { f(c) }

// WithVariant selects the allocator strategy. Default VariantSlabBuddy.
func WithVariant(v Variant) HeapOption {
	return heapOptionFunc(func(c *heapConfig) { c.variant = v })
}

// WithArena sets the total arena size in bytes available to the buddy
// allocator (VariantSlabBuddy) or the whole heap (VariantHoles). Default
// 1 MiB.
func WithArena(bytes int) HeapOption {
	return heapOptionFunc(func(c *heapConfig) { c.arenaBytes = bytes })
}

// WithSlabBlocksPerBank sets how many blocks each fixed-size slab bank
// carries. Default 64.
func WithSlabBlocksPerBank(n int) HeapOption {
	return heapOptionFunc(func(c *heapConfig) { c.slabsPerBank = n })
}

func resolveHeapConfig(opts []HeapOption) heapConfig {
	c := heapConfig{
		variant:      VariantSlabBuddy,
		arenaBytes:   1 << 20,
		slabsPerBank: 64,
	}
	for _, o := range opts {
		o.apply(&c)
	}
	return c
}

// NewHeap constructs a Heap per the given options.
func NewHeap(opts ...HeapOption) *Heap {
	c := resolveHeapConfig(opts)
	h := &Heap{variant: c.variant}

	switch c.variant {
	case VariantHoles:
		h.holes = newHoleHeap(c.arenaBytes)
		h.stats.setTotal(int64(c.arenaBytes))
	default:
		var slabTotal int64
		for i, size := range slabSizes {
			h.slabs[i] = newSlabBank(size, c.slabsPerBank)
			slabTotal += int64(size * c.slabsPerBank)
		}
		h.buddy = newBuddyAllocator(c.arenaBytes)
		h.stats.setTotal(slabTotal + int64(c.arenaBytes))
	}
	return h
}

// Stats returns the heap's allocation statistics.
func (h *Heap) Stats() *Stats { return &h.stats }

// Alloc reserves size bytes aligned to align (which must be a power of
// two; 0 means no particular alignment beyond the allocator's own). It
// returns kerrors.ErrResourceExhausted if no block could be carved out.
func (h *Heap) Alloc(size int, align int) (*Block, error) {
	if size <= 0 {
		return nil, kerrors.New(kerrors.ClassInvalidArgument, "size must be positive")
	}

	if h.variant == VariantHoles {
		off, total, data, ok := h.holes.alloc(alignUp(size, align))
		if !ok {
			return nil, kerrors.New(kerrors.ClassResourceExhausted, "hole heap exhausted")
		}
		h.stats.recordAlloc(int64(total))
		return &Block{kind: blockHole, offset: off, total: total, data: data}, nil
	}

	// A slab block is only guaranteed aligned to its own block size, so
	// any bank whose size isn't itself a multiple of align is skipped.
	for i, blockSize := range slabSizes {
		if blockSize < size || blockSize%maxInt(align, 1) != 0 {
			continue
		}
		if off, data, ok := h.slabs[i].alloc(); ok {
			h.stats.recordAlloc(int64(blockSize))
			return &Block{kind: blockSlab, bank: h.slabs[i], offset: off, total: blockSize, data: data}, nil
		}
	}

	needed := alignUp(size, align)
	off, order, data, ok := h.buddy.alloc(needed)
	if !ok {
		return nil, kerrors.New(kerrors.ClassResourceExhausted, "buddy allocator exhausted")
	}
	h.stats.recordAlloc(int64(orderBlockSize(order)))
	return &Block{kind: blockBuddy, offset: off, order: order, total: orderBlockSize(order), data: data}, nil
}

// Free releases blk. Freeing the same Block twice is a use-after-free bug
// and, like the rest of the kernel's resource lifetimes, is not guarded
// against at runtime.
func (h *Heap) Free(blk *Block) {
	switch blk.kind {
	case blockSlab:
		blk.bank.free(blk.offset)
	case blockBuddy:
		h.buddy.free(blk.offset, blk.order)
	case blockHole:
		h.holes.free(blk.offset, blk.total)
	}
	h.stats.recordFree(int64(blk.total))
}

// Realloc resizes blk to newSize, copying the overlapping prefix of its
// contents. If newSize fits within the block already allocated, the same
// Block is returned unchanged (in place); otherwise a new block is
// allocated, contents copied, and the old block freed — matching the
// spec's realloc-in-place policy.
func (h *Heap) Realloc(blk *Block, newSize int) (*Block, error) {
	if newSize <= len(blk.data) {
		return blk, nil
	}
	next, err := h.Alloc(newSize, 0)
	if err != nil {
		return nil, err
	}
	copy(next.data, blk.data)
	h.Free(blk)
	return next, nil
}

func alignUp(size, align int) int {
	if align <= 1 {
		return size
	}
	return (size + align - 1) &^ (align - 1)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
