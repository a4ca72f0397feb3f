package ksched

import (
	"github.com/blueos-go/kernel/kerrors"
	"github.com/blueos-go/kernel/klog"
	"github.com/blueos-go/kernel/ksync"
)

// maxBoostDepth bounds the pend_mutex -> owner walk so that a priority
// boost can never loop forever, even if a future bug introduces a cycle.
// The original documents the same bound for the same reason.
const maxBoostDepth = 64

// Mutex is a priority-inheriting mutual-exclusion lock. Its owner field is
// the live back-reference the boost protocol walks (pending thread ->
// mutex -> owner -> owner's pendingMutex -> next mutex ...), which is why
// Mutex lives in ksched next to Thread rather than in ksyncobj: ksyncobj's
// primitives only ever point one way, into ksched, but Mutex and Thread
// point at each other.
type Mutex struct {
	sched *Scheduler
	mu    ksync.Spinlock

	owner   *Thread
	nesting int

	pending *ksync.WaitQueue[*Thread]
}

// NewMutex constructs an unlocked, priority-inheriting mutex.
func NewMutex(sched *Scheduler) *Mutex {
	return &Mutex{
		sched:   sched,
		pending: ksync.NewWaitQueue[*Thread](ksync.PriorityOrder, threadLess),
	}
}

// mutexLockTag tags the mutex's own internal spinlock with a fixed,
// always-negative value (the same for every Mutex) so it can never collide
// with a thread id or a core dispatcher tag.
func (m *Mutex) mutexLockTag() int64 { return -(1 << 40) }

// Lock acquires m for thread t, recursively if t already owns it, blocking
// (and boosting the owner's priority, transitively, if t outranks it)
// otherwise.
func (m *Mutex) Lock(t *Thread) {
	for {
		g := m.mu.Lock(m.mutexLockTag())

		if m.owner == nil {
			m.owner = t
			m.nesting = 1
			t.ownedMutexes = append(t.ownedMutexes, m)
			g.Unlock()
			return
		}
		if m.owner == t {
			m.nesting++
			g.Unlock()
			return
		}

		owner := m.owner
		t.pendingMutex.Store(m)
		m.boost(t, owner)

		// The push and the lock release both happen around Suspend's
		// parking point (push in enqueue, before t.yieldFn; release in
		// postPark, after t is confirmed parked) so that a concurrent
		// Unlock can never pop and wake t before t has actually stopped
		// running — otherwise t could be marked Ready and re-dispatched
		// while its own goroutine is still mid-Suspend, racing itself.
		var entry *ksync.Entry[*Thread]
		t.Suspend(func() {
			entry = m.pending.PushBack(t)
		}, func() {
			g.Unlock()
		})

		// Re-check: either we were handed ownership directly by Unlock
		// (in which case pending no longer holds our entry), or we were
		// woken spuriously and must retry the whole acquisition.
		g2 := m.mu.Lock(m.mutexLockTag())
		stillQueued := m.pending.Remove(entry)
		g2.Unlock()
		if !stillQueued {
			t.pendingMutex.Store(nil)
			return
		}
	}
}

// boost walks pend_mutex -> owner, raising every owner's effective
// priority to at least waiter's, re-sorting each one in whichever queue
// (ready or a mutex's pending queue) it currently sits in. Caller holds
// m.mu; the walk itself re-acquires each subsequent mutex's own lock as it
// descends, mirroring the original's "no global lock held across the
// whole walk" design.
func (m *Mutex) boost(waiter, owner *Thread) {
	cur := owner
	depth := 0
	for cur != nil && depth < maxBoostDepth {
		if waiter.Priority() >= cur.Priority() {
			return
		}
		cur.setPriority(waiter.Priority())
		m.sched.reorder(cur)

		next := cur.pendingMutex.Load()
		if next == nil {
			return
		}
		cur = next.owner
		depth++
	}
	if depth >= maxBoostDepth {
		klog.L().Warning().Log("priority boost walk hit depth bound, truncating")
	}
}

// reorder re-splices t into the ready queue or its current mutex's
// pending queue at its new priority. Because neither WaitQueue exposes an
// in-place re-sort, this removes and re-pushes t, which is equivalent for
// a queue ordered purely by priority.
func (s *Scheduler) reorder(t *Thread) {
	switch t.State() {
	case StateReady:
		g := s.mu.Lock(coreDispatcherTag(0))
		if s.ready.RemoveValue(t) {
			s.ready.PushBack(t)
		}
		g.Unlock()
	case StateSuspended:
		if m := t.pendingMutex.Load(); m != nil {
			g := m.mu.Lock(m.mutexLockTag())
			if m.pending.RemoveValue(t) {
				m.pending.PushBack(t)
			}
			g.Unlock()
		}
	}
}

// Unlock releases one level of m's recursive lock, held by t. Once
// nesting drops to zero, ownership passes directly to the highest-
// priority pending waiter (if any) and t's own priority is restored to
// the maximum of its base priority and the highest pending-waiter
// priority across every mutex it still owns — the same "restore, don't
// just reset" rule the original uses so a thread holding two boosted
// mutexes doesn't drop below a waiter still pending on the other one.
func (m *Mutex) Unlock(t *Thread) {
	g := m.mu.Lock(m.mutexLockTag())
	if m.owner != t {
		g.Unlock()
		kerrors.Invariant("ksched: Unlock called by non-owner thread %d", t.id)
	}
	m.nesting--
	if m.nesting > 0 {
		g.Unlock()
		return
	}

	removeOwned(t, m)
	m.owner = nil

	next, ok := m.pending.PopFront()
	if ok {
		next.pendingMutex.Store(nil)
		m.owner = next
		m.nesting = 1
		next.ownedMutexes = append(next.ownedMutexes, m)
	}
	g.Unlock()

	t.setPriority(restoredPriority(t))

	if ok {
		m.sched.MakeReady(next)
	}
}

func removeOwned(t *Thread, m *Mutex) {
	for i, om := range t.ownedMutexes {
		if om == m {
			t.ownedMutexes = append(t.ownedMutexes[:i], t.ownedMutexes[i+1:]...)
			return
		}
	}
}

// restoredPriority computes max(base priority, highest pending-waiter
// priority across every mutex t still owns).
func restoredPriority(t *Thread) int32 {
	best := t.basePriority
	for _, m := range t.ownedMutexes {
		g := m.mu.Lock(m.mutexLockTag())
		if head, ok := m.pending.Front(); ok && head.Priority() < best {
			best = head.Priority()
		}
		g.Unlock()
	}
	return best
}
