package ksync

import (
	"runtime"
	"sync/atomic"

	"github.com/blueos-go/kernel/karch"
	"github.com/blueos-go/kernel/kerrors"
)

// Spinlock is plain single-owner mutual exclusion: it disables nothing
// beyond itself, matching the original's "plain" flavor (as opposed to
// irqsave). Acquire spins with a CPU hint (runtime.Gosched, the closest
// portable equivalent of a WFE/PAUSE instruction) rather than parking,
// since the kernel's own scheduler may itself be the thing contending for
// this lock. Re-entry by the same holder is forbidden and panics, matching
// the original's documented precondition.
type Spinlock struct {
	locked atomic.Bool
	holder atomic.Int64 // goroutine-local owner tag; 0 means unheld
}

// Guard is returned by Lock and releases the lock when Unlock is called.
// Guards are expected to be released via defer immediately after
// acquisition, the Go analogue of the original's RAII guard.
type Guard struct {
	sl *Spinlock
}

// Unlock releases the lock this guard was issued for.
func (g Guard) Unlock() {
	g.sl.holder.Store(0)
	g.sl.locked.Store(false)
}

// Lock acquires the spinlock, spinning until it is free. tag must be a
// value that uniquely identifies the calling thread (e.g. the thread's
// id); passing the same tag while already holding the lock is a re-entry
// bug and panics via kerrors.Invariant.
func (s *Spinlock) Lock(tag int64) Guard {
	for !s.locked.CompareAndSwap(false, true) {
		if s.holder.Load() == tag {
			kerrors.Invariant("spinlock: re-entrant Lock by tag %d", tag)
		}
		runtime.Gosched()
	}
	s.holder.Store(tag)
	return Guard{sl: s}
}

// TryLock attempts to acquire the lock without spinning, reporting
// whether it succeeded.
func (s *Spinlock) TryLock(tag int64) (Guard, bool) {
	if !s.locked.CompareAndSwap(false, true) {
		return Guard{}, false
	}
	s.holder.Store(tag)
	return Guard{sl: s}, true
}

// IRQGuard is returned by IRQSpinlock.Lock; releasing it restores the
// interrupt mask in addition to unlocking.
type IRQGuard struct {
	inner Guard
	irq   karch.IRQGuard
}

// Unlock releases the spinlock, then restores the prior interrupt mask.
// Order matters: the original releases the plain lock before restoring
// interrupts, so that a pending interrupt taken immediately after
// irqrestore never observes the lock still held.
func (g IRQGuard) Unlock() {
	g.inner.Unlock()
	g.irq.Release()
}

// IRQSpinlock additionally masks local interrupts for the duration of the
// critical section, recording the prior mask to restore on release — the
// original's "irqsave" flavor, used to guard state an interrupt handler
// might also touch (the ready queue, a wait queue, the allocator).
type IRQSpinlock struct {
	inner Spinlock
	port  karch.Port
}

// NewIRQSpinlock constructs an IRQSpinlock backed by port's MaskIRQ.
func NewIRQSpinlock(port karch.Port) *IRQSpinlock {
	return &IRQSpinlock{port: port}
}

// Lock masks interrupts then acquires the inner spinlock.
func (s *IRQSpinlock) Lock(tag int64) IRQGuard {
	irq := s.port.MaskIRQ()
	return IRQGuard{inner: s.inner.Lock(tag), irq: irq}
}
