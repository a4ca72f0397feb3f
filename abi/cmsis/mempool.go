// Package cmsis provides thin, Go-idiomatic translations of the CMSIS-RTOS2
// osMemoryPool* surface onto this kernel's own heap and semaphore
// primitives, following
// https://arm-software.github.io/CMSIS_6/main/RTOS2/group__CMSIS__RTOS__PoolMgmt.html.
//
// Like the original adapter, this has no dedicated fixed-block-pool
// allocator underneath: blocks are carved from the shared Heap once at
// construction and threaded onto a free list guarded by a semaphore whose
// count tracks free blocks. A real pool implementation could recycle
// blocks without going through the general-purpose allocator at all; this
// is the same simplification the adapter itself documents (FIXME: no
// builtin memory pool API in the allocator).
package cmsis

import (
	"errors"
	"time"

	"github.com/blueos-go/kernel/kmem"
	"github.com/blueos-go/kernel/ksched"
	"github.com/blueos-go/kernel/ksync"
	"github.com/blueos-go/kernel/ksyncobj"
	"github.com/blueos-go/kernel/ktimer"
)

// Errors mirror the handful of osStatus_t codes these shims can produce.
var (
	// ErrResource corresponds to osErrorResource: the pool has no free
	// block available and the caller's timeout elapsed.
	ErrResource = errors.New("cmsis: no free memory pool block available")
	// ErrParameter corresponds to osErrorParameter: a bad argument (zero
	// block count or size) was supplied at construction.
	ErrParameter = errors.New("cmsis: invalid memory pool parameter")
)

// MemoryPool is the osMemoryPoolId_t analogue: a fixed number of
// fixed-size blocks, handed out by osMemoryPoolAlloc and returned by
// osMemoryPoolFree. Unlike the adapter's irq-disabled fast path, a
// blocking Alloc here parks the calling thread the same way every other
// timed-wait primitive in this kernel does (the adapter's
// is_in_irq-refusal has no analogue, since nothing in this rendition
// calls Alloc from an interrupt context).
type MemoryPool struct {
	name      string
	blockSize int
	heap      *kmem.Heap
	svc       *ktimer.Service
	avail     *ksyncobj.Semaphore

	mu   ksync.Spinlock
	free []*kmem.Block
}

func (p *MemoryPool) lockTag(t *ksched.Thread) int64 { return -(int64(1) << 46) - int64(t.ID()) }

// NewMemoryPool is the osMemoryPoolNew analogue: carves blockCount blocks
// of blockSize bytes out of heap up front and seeds the free list with
// all of them.
func NewMemoryPool(heap *kmem.Heap, svc *ktimer.Service, name string, blockCount, blockSize int) (*MemoryPool, error) {
	if blockCount <= 0 || blockSize <= 0 {
		return nil, ErrParameter
	}
	p := &MemoryPool{
		name:      name,
		blockSize: blockSize,
		heap:      heap,
		svc:       svc,
		avail:     ksyncobj.NewSemaphore(uint32(blockCount), uint32(blockCount)),
		free:      make([]*kmem.Block, 0, blockCount),
	}
	for i := 0; i < blockCount; i++ {
		blk, err := heap.Alloc(blockSize, 0)
		if err != nil {
			return nil, err
		}
		p.free = append(p.free, blk)
	}
	return p, nil
}

func (p *MemoryPool) Name() string      { return p.name }
func (p *MemoryPool) BlockSize() int    { return p.blockSize }
func (p *MemoryPool) Capacity() int     { return cap(p.free) }
func (p *MemoryPool) FreeCount() uint32 { return p.avail.Count() }

// Alloc is the osMemoryPoolAlloc analogue: timeout 0 behaves like
// osMemoryPoolAlloc's own "timeout 0" immediate-attempt convention; a
// negative timeout blocks indefinitely.
func (p *MemoryPool) Alloc(t *ksched.Thread, timeout time.Duration) (*kmem.Block, error) {
	var ok bool
	switch {
	case timeout == 0:
		ok = p.avail.TryAcquire(t)
	case timeout < 0:
		ok = p.avail.AcquireTimeout(p.svc, t, time.Duration(1<<63-1))
	default:
		ok = p.avail.AcquireTimeout(p.svc, t, timeout)
	}
	if !ok {
		return nil, ErrResource
	}

	g := p.mu.Lock(p.lockTag(t))
	blk := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	g.Unlock()
	return blk, nil
}

// Free is the osMemoryPoolFree analogue: returns blk to the pool's free
// list and wakes one blocked Alloc caller if any.
func (p *MemoryPool) Free(t *ksched.Thread, blk *kmem.Block) {
	g := p.mu.Lock(p.lockTag(t))
	p.free = append(p.free, blk)
	g.Unlock()
	p.avail.Release(t)
}
