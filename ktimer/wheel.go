// Package ktimer implements the kernel's timer wheel and tick service
// (spec §4.4): a fixed number of near-term buckets for timers due within
// one revolution, an overflow heap (grounded on
// eventloop/loop.go's timerHeap) for anything further out, and a
// dedicated soft-timer thread that runs callbacks outside the tick
// handler itself — a tick handler that ran arbitrary callback bodies
// directly would be the timer equivalent of doing real work on an
// interrupt stack.
package ktimer

import "container/heap"

// Timer is one armed deadline. Callback runs on the service's soft-timer
// thread, never on the tick goroutine itself. Period, if non-zero,
// re-arms the timer for another Period after each fire (re-armed before
// Callback runs, matching the spec's "periodic timers re-arm before their
// callback fires" requirement, so a slow callback can't starve its own
// next tick).
type Timer struct {
	deadline uint64 // absolute tick count
	period   uint64
	callback func()
	canceled bool
	index    int // heap index, maintained by container/heap; -1 when in a bucket or idle
}

// Canceled reports whether Cancel has been called. Safe to read only
// while holding the lock that serializes the owning Wheel, which has no
// lock of its own (Service uses its spinlock; callers use Wheel.Cancel).
func (t *Timer) Canceled() bool { return t.canceled }

const bucketCount = 256

// overflowHeap is a min-heap of *Timer ordered by absolute deadline,
// exactly eventloop's timerHeap generalized from time.Time to tick count.
type overflowHeap []*Timer

func (h overflowHeap) Len() int            { return len(h) }
func (h overflowHeap) Less(i, j int) bool  { return h[i].deadline < h[j].deadline }
func (h overflowHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *overflowHeap) Push(x any)         { t := x.(*Timer); t.index = len(*h); *h = append(*h, t) }
func (h *overflowHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Wheel buckets timers by (deadline mod bucketCount) for anything due
// within the next revolution, and spills everything further out into an
// overflow heap that Advance drains into buckets as the wheel catches up
// to it. Not self-synchronizing: the caller (Service) holds its own lock
// across Add/Cancel/Advance.
type Wheel struct {
	buckets  [bucketCount][]*Timer
	overflow overflowHeap
	current  uint64
}

// NewWheel constructs an empty wheel at tick 0.
func NewWheel() *Wheel {
	return &Wheel{}
}

// Add arms t, due at t.deadline (an absolute tick count >= the wheel's
// current tick).
func (w *Wheel) Add(t *Timer) {
	delta := t.deadline - w.current
	if delta < bucketCount {
		slot := (w.current + delta) % bucketCount
		t.index = -1
		w.buckets[slot] = append(w.buckets[slot], t)
		return
	}
	heap.Push(&w.overflow, t)
}

// Cancel marks t canceled; if t is still sitting in the overflow heap it
// is removed immediately, otherwise Advance simply skips it (a bucket
// slice entry marked canceled) the next time it would fire — cheaper than
// an O(n) bucket scan for every cancellation.
func (w *Wheel) Cancel(t *Timer) {
	t.canceled = true
	if t.index >= 0 {
		heap.Remove(&w.overflow, t.index)
	}
}

// Advance moves the wheel forward by one tick and returns every timer due
// to fire at the new current tick (canceled ones excluded). Periodic
// timers are re-armed for their next deadline before being returned.
func (w *Wheel) Advance() []*Timer {
	w.current++
	slot := w.current % bucketCount

	due := w.buckets[slot]
	w.buckets[slot] = nil

	// Pull anything from the overflow heap that now falls within one
	// revolution into its bucket, so it will be found by a future slot
	// pass rather than re-scanned from the heap every tick.
	for w.overflow.Len() > 0 && w.overflow[0].deadline-w.current < bucketCount {
		t := heap.Pop(&w.overflow).(*Timer)
		if t.canceled {
			continue
		}
		destSlot := t.deadline % bucketCount
		t.index = -1
		w.buckets[destSlot] = append(w.buckets[destSlot], t)
	}

	fired := due[:0]
	for _, t := range due {
		if t.canceled {
			continue
		}
		fired = append(fired, t)
		if t.period > 0 {
			t.deadline = w.current + t.period
			w.Add(t)
		}
	}
	return fired
}

// CurrentTick returns the wheel's current absolute tick count.
func (w *Wheel) CurrentTick() uint64 { return w.current }
