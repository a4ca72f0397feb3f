package ksyncobj

import (
	"reflect"
	"sync/atomic"
	"time"

	"github.com/blueos-go/kernel/ksched"
	"github.com/blueos-go/kernel/ksync"
	"github.com/blueos-go/kernel/ktimer"
)

// futexTableSize is the fixed number of wait-queue buckets addresses hash
// into (spec §4.6: "keys are hashed into a fixed table of wait queues;
// collisions are permitted, the waiter re-checks *addr after wake").
const futexTableSize = 256

type futexBucket struct {
	mu      ksync.Spinlock
	waiters *ksync.WaitQueue[*ksched.Thread]
}

// Futex is the kernel's atomic wait/wake primitive: a user-space-fast,
// kernel-slow primitive whose state lives in an ordinary atomic word, the
// kernel involved only on contention.
type Futex struct {
	buckets [futexTableSize]futexBucket
}

// NewFutex constructs an empty futex wait-table.
func NewFutex() *Futex {
	f := &Futex{}
	for i := range f.buckets {
		f.buckets[i].waiters = ksync.NewWaitQueue[*ksched.Thread](ksync.PriorityOrder, threadLess)
	}
	return f
}

func bucketFor(addr *atomic.Int32) int {
	ptr := reflect.ValueOf(addr).Pointer()
	return int(ptr % futexTableSize)
}

func (f *Futex) lockTag(t *ksched.Thread) int64 { return -(int64(1) << 45) - int64(t.ID()) }

// AtomicWait atomically checks *addr == expected and, if so, blocks t on
// the wait queue addr hashes to; returns false on timeout, true if woken
// by AtomicWake (the waiter is responsible for re-checking *addr itself,
// since bucket collisions mean a wake is not a guarantee the word
// actually changed).
func (f *Futex) AtomicWait(svc *ktimer.Service, t *ksched.Thread, addr *atomic.Int32, expected int32, timeout time.Duration) bool {
	b := &f.buckets[bucketFor(addr)]

	g := b.mu.Lock(f.lockTag(t))
	if addr.Load() != expected {
		g.Unlock()
		return true
	}

	t.SetTimedOut(false)
	var entry *ksync.Entry[*ksched.Thread]
	var timer *ktimer.Timer
	t.Suspend(func() {
		entry = b.waiters.PushBack(t)
		timer = ktimer.ArmTimeout(svc, t, timeout, func() bool {
			g2 := b.mu.Lock(f.lockTag(t))
			won := b.waiters.Remove(entry)
			g2.Unlock()
			return won
		})
	}, func() {
		g.Unlock()
	})

	if t.TimedOut() {
		return false
	}
	svc.Cancel(timer)
	return true
}

// AtomicWake wakes up to n waiters queued on addr's bucket, returning how
// many were actually woken.
func (f *Futex) AtomicWake(t *ksched.Thread, addr *atomic.Int32, n int) int {
	b := &f.buckets[bucketFor(addr)]

	g := b.mu.Lock(f.lockTag(t))
	var woken []*ksched.Thread
	for len(woken) < n {
		w, ok := b.waiters.PopFront()
		if !ok {
			break
		}
		woken = append(woken, w)
	}
	g.Unlock()

	for _, w := range woken {
		w.SetTimedOut(false)
		w.Sched().MakeReady(w)
	}
	return len(woken)
}
