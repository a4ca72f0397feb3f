package ksyncobj

import (
	"time"

	"github.com/blueos-go/kernel/ksched"
	"github.com/blueos-go/kernel/ksync"
	"github.com/blueos-go/kernel/ktimer"
)

// WaitMode selects how a waiter's mask is tested against the flags word.
type WaitMode int

const (
	// WaitAny is satisfied when any bit of the waiter's mask is set.
	WaitAny WaitMode = iota
	// WaitAll is satisfied only when every bit of the waiter's mask is set.
	WaitAll
)

type flagsWaiter struct {
	thread *ksched.Thread
	mask   uint32
	mode   WaitMode
	clear  bool
	// observed is the flags word at the moment Set found this waiter
	// satisfied, before any clear.
	observed uint32
}

// EventFlags is a 32-bit flag word with mask/mode-qualified waiters (spec
// §4.6): set(mask) ORs bits in then walks pending waiters testing
// satisfaction, clearing bits for waiters that requested it.
type EventFlags struct {
	mu      ksync.Spinlock
	bits    uint32
	pending *ksync.WaitQueue[*flagsWaiter]
}

// NewEventFlags constructs an EventFlags word, initially all bits clear.
func NewEventFlags() *EventFlags {
	return &EventFlags{
		pending: ksync.NewWaitQueue[*flagsWaiter](ksync.FIFO, nil),
	}
}

func (e *EventFlags) lockTag(t *ksched.Thread) int64 { return -(int64(1) << 43) - int64(t.ID()) }

func satisfied(bits uint32, w *flagsWaiter) bool {
	if w.mode == WaitAll {
		return bits&w.mask == w.mask
	}
	return bits&w.mask != 0
}

// Set ORs mask into the flags word, then wakes every pending waiter whose
// mask is now satisfied, clearing bits for those that asked for it.
func (e *EventFlags) Set(t *ksched.Thread, mask uint32) {
	g := e.mu.Lock(e.lockTag(t))
	e.bits |= mask

	var woken []*flagsWaiter
	for n := range e.pending.All() {
		w := n.Value
		if satisfied(e.bits, w) {
			w.observed = e.bits
			woken = append(woken, w)
		}
	}
	for _, w := range woken {
		e.pending.RemoveValue(w)
		if w.clear {
			e.bits &^= w.mask
		}
	}
	g.Unlock()

	for _, w := range woken {
		w.thread.SetTimedOut(false)
		w.thread.Sched().MakeReady(w.thread)
	}
}

// Clear clears the given bits unconditionally (no waiters are affected: a
// waiter is only ever woken by Set).
func (e *EventFlags) Clear(t *ksched.Thread, mask uint32) {
	g := e.mu.Lock(e.lockTag(t))
	e.bits &^= mask
	g.Unlock()
}

// Wait blocks t until mask is satisfied under mode (testing the current
// bits first, the fast path), clearing the satisfying bits if clear is
// true. Returns the bits observed at satisfaction time (before any clear),
// and false if timeout elapsed first.
func (e *EventFlags) Wait(svc *ktimer.Service, t *ksched.Thread, mask uint32, mode WaitMode, clear bool, timeout time.Duration) (observed uint32, ok bool) {
	g := e.mu.Lock(e.lockTag(t))
	w := &flagsWaiter{thread: t, mask: mask, mode: mode, clear: clear}
	if satisfied(e.bits, w) {
		observed = e.bits
		if clear {
			e.bits &^= mask
		}
		g.Unlock()
		return observed, true
	}

	t.SetTimedOut(false)
	var entry *ksync.Entry[*flagsWaiter]
	var timer *ktimer.Timer
	t.Suspend(func() {
		entry = e.pending.PushBack(w)
		timer = ktimer.ArmTimeout(svc, t, timeout, func() bool {
			g2 := e.mu.Lock(e.lockTag(t))
			won := e.pending.Remove(entry)
			g2.Unlock()
			return won
		})
	}, func() {
		g.Unlock()
	})

	if t.TimedOut() {
		return 0, false
	}
	svc.Cancel(timer)

	g3 := e.mu.Lock(e.lockTag(t))
	observed = w.observed
	g3.Unlock()
	return observed, true
}
