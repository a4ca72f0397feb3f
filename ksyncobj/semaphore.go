package ksyncobj

import (
	"time"

	"github.com/blueos-go/kernel/ksched"
	"github.com/blueos-go/kernel/ksync"
	"github.com/blueos-go/kernel/ktimer"
)

// Semaphore is a counting semaphore with a timed acquire, matching spec
// §4.6: count <= max always, and count > 0 implies pending is empty — a
// release that finds a waiter hands the slot directly to it rather than
// incrementing count and letting the waiter race to decrement it again.
type Semaphore struct {
	mu      ksync.Spinlock
	count   uint32
	max     uint32
	pending *ksync.WaitQueue[*ksched.Thread]
}

// readTag is used for operations (Count) that aren't performed on behalf
// of any particular thread; chosen well outside the range lockTag
// produces for real thread ids so it can never collide with one.
const readTag = -(int64(1) << 50)

// NewSemaphore constructs a semaphore with the given initial count and
// maximum. Panics if initial > max, an invalid construction the original
// also rejects at creation.
func NewSemaphore(initial, max uint32) *Semaphore {
	if initial > max {
		panic("ksyncobj: semaphore initial count exceeds max")
	}
	return &Semaphore{
		count:   initial,
		max:     max,
		pending: ksync.NewWaitQueue[*ksched.Thread](ksync.PriorityOrder, threadLess),
	}
}

func (s *Semaphore) lockTag(t *ksched.Thread) int64 { return -(int64(1) << 42) - int64(t.ID()) }

// TryAcquire decrements count and returns true if count > 0, without
// blocking.
func (s *Semaphore) TryAcquire(t *ksched.Thread) bool {
	g := s.mu.Lock(s.lockTag(t))
	defer g.Unlock()
	if s.count > 0 {
		s.count--
		return true
	}
	return false
}

// AcquireTimeout decrements count if count > 0 (fast path); otherwise
// blocks t for up to timeout. Returns true if woken by Release (the slot
// was transferred directly, count is unchanged), false if the timeout
// elapsed first.
//
// The wait-queue push and the timer arm both happen inside Suspend's
// enqueue closure, which runs before t physically parks and while s.mu is
// still (conceptually) held — s.mu is actually released only by the
// dispatcher's postPark hook, once t is confirmed parked. This closes the
// window a naive "push, unlock, then arm" sequence would leave open: a
// concurrent Release popping t before its timeout is armed would
// otherwise let a now-irrelevant timer fire later and wake whatever t is
// waiting on next.
func (s *Semaphore) AcquireTimeout(svc *ktimer.Service, t *ksched.Thread, timeout time.Duration) bool {
	g := s.mu.Lock(s.lockTag(t))
	if s.count > 0 {
		s.count--
		g.Unlock()
		return true
	}

	t.SetTimedOut(false)
	var entry *ksync.Entry[*ksched.Thread]
	var timer *ktimer.Timer
	t.Suspend(func() {
		entry = s.pending.PushBack(t)
		timer = ktimer.ArmTimeout(svc, t, timeout, func() bool {
			g2 := s.mu.Lock(s.lockTag(t))
			won := s.pending.Remove(entry)
			g2.Unlock()
			return won
		})
	}, func() {
		g.Unlock()
	})

	if !t.TimedOut() {
		svc.Cancel(timer)
		return true
	}
	return false
}

// Release wakes the highest-priority pending waiter (transferring the
// slot directly, count unchanged) if any, else increments count, clamped
// at max.
func (s *Semaphore) Release(t *ksched.Thread) {
	g := s.mu.Lock(s.lockTag(t))
	next, ok := s.pending.PopFront()
	if !ok {
		if s.count < s.max {
			s.count++
		}
	}
	g.Unlock()

	if ok {
		next.SetTimedOut(false)
		next.Sched().MakeReady(next)
	}
}

// Count returns the current available count.
func (s *Semaphore) Count() uint32 {
	g := s.mu.Lock(readTag)
	defer g.Unlock()
	return s.count
}

func threadLess(a, b *ksched.Thread) bool { return a.Priority() < b.Priority() }
