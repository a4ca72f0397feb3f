package kmem

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// Stats tracks the three watermarks the spec requires every allocator
// front-end to expose: currently allocated bytes, the high-water mark, and
// the arena's total capacity. Padded to a cache line each so concurrent
// Alloc/Free on different CPUs don't false-share the counters.
type Stats struct {
	allocated atomic.Int64
	_         cpu.CacheLinePad
	maximum   atomic.Int64
	_         cpu.CacheLinePad
	total     atomic.Int64
}

// Allocated returns the number of bytes currently outstanding.
func (s *Stats) Allocated() int64 { return s.allocated.Load() }

// Maximum returns the high-water mark of Allocated ever observed.
func (s *Stats) Maximum() int64 { return s.maximum.Load() }

// Total returns the arena's total capacity in bytes.
func (s *Stats) Total() int64 { return s.total.Load() }

func (s *Stats) setTotal(n int64) { s.total.Store(n) }

// recordAlloc updates allocated and, monotonically, maximum. Heap calls
// it after the owning allocator has released its lock; the counters are
// atomic and need no lock of their own.
func (s *Stats) recordAlloc(n int64) {
	cur := s.allocated.Add(n)
	for {
		max := s.maximum.Load()
		if cur <= max {
			return
		}
		if s.maximum.CompareAndSwap(max, cur) {
			return
		}
	}
}

// recordFree subtracts n from allocated; like recordAlloc, it needs no
// lock.
func (s *Stats) recordFree(n int64) {
	s.allocated.Add(-n)
}
