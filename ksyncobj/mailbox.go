package ksyncobj

import (
	"time"

	"github.com/blueos-go/kernel/karch"
	"github.com/blueos-go/kernel/kerrors"
	"github.com/blueos-go/kernel/ksched"
	"github.com/blueos-go/kernel/ksync"
	"github.com/blueos-go/kernel/ktimer"
)

// Mailbox is a bounded circular buffer of fixed-size slots plus two wait
// queues (spec §4.6): items_in_queue <= capacity always; the send-waiter
// queue is empty whenever the mailbox isn't full; the receive-waiter
// queue is empty whenever it isn't empty. Guarded by a single irqsave
// spinlock serializing the ring indices, since an interrupt handler may
// itself call Send on behalf of a driver.
type Mailbox[T any] struct {
	mu ksync.IRQSpinlock

	buf      []T
	readPos  int
	writePos int
	count    int

	sendWaiters *ksync.WaitQueue[*ksched.Thread]
	recvWaiters *ksync.WaitQueue[*ksched.Thread]
}

// NewMailbox constructs a Mailbox with the given slot capacity.
func NewMailbox[T any](port karch.Port, capacity int) *Mailbox[T] {
	if capacity <= 0 {
		kerrors.Invariant("ksyncobj: mailbox capacity must be positive")
	}
	return &Mailbox[T]{
		mu:          *ksync.NewIRQSpinlock(port),
		buf:         make([]T, capacity),
		sendWaiters: ksync.NewWaitQueue[*ksched.Thread](ksync.PriorityOrder, threadLess),
		recvWaiters: ksync.NewWaitQueue[*ksched.Thread](ksync.PriorityOrder, threadLess),
	}
}

func (m *Mailbox[T]) lockTag(t *ksched.Thread) int64 { return -(int64(1) << 44) - int64(t.ID()) }

// SendWait blocks t on the send-waiter queue while the mailbox is full,
// then appends value at the write position, waking one receive-waiter if
// any. Returns false if timeout elapses before space is available.
func (m *Mailbox[T]) SendWait(svc *ktimer.Service, t *ksched.Thread, value T, timeout time.Duration) bool {
	g := m.mu.Lock(m.lockTag(t))
	for m.count == len(m.buf) {
		t.SetTimedOut(false)
		var entry *ksync.Entry[*ksched.Thread]
		var timer *ktimer.Timer
		t.Suspend(func() {
			entry = m.sendWaiters.PushBack(t)
			timer = ktimer.ArmTimeout(svc, t, timeout, func() bool {
				g2 := m.mu.Lock(m.lockTag(t))
				won := m.sendWaiters.Remove(entry)
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
		g = m.mu.Lock(m.lockTag(t))
	}

	m.buf[m.writePos] = value
	m.writePos = (m.writePos + 1) % len(m.buf)
	m.count++

	recv, hasRecv := m.recvWaiters.PopFront()
	g.Unlock()

	if hasRecv {
		recv.SetTimedOut(false)
		recv.Sched().MakeReady(recv)
	}
	return true
}

// Receive blocks t on the receive-waiter queue while the mailbox is
// empty, then pops the slot at the read position, waking one
// send-waiter if any. Returns false if timeout elapses before data
// arrives.
func (m *Mailbox[T]) Receive(svc *ktimer.Service, t *ksched.Thread, timeout time.Duration) (value T, ok bool) {
	g := m.mu.Lock(m.lockTag(t))
	for m.count == 0 {
		t.SetTimedOut(false)
		var entry *ksync.Entry[*ksched.Thread]
		var timer *ktimer.Timer
		t.Suspend(func() {
			entry = m.recvWaiters.PushBack(t)
			timer = ktimer.ArmTimeout(svc, t, timeout, func() bool {
				g2 := m.mu.Lock(m.lockTag(t))
				won := m.recvWaiters.Remove(entry)
				g2.Unlock()
				return won
			})
		}, func() {
			g.Unlock()
		})
		if t.TimedOut() {
			var zero T
			return zero, false
		}
		svc.Cancel(timer)
		g = m.mu.Lock(m.lockTag(t))
	}

	value = m.buf[m.readPos]
	m.readPos = (m.readPos + 1) % len(m.buf)
	m.count--

	send, hasSend := m.sendWaiters.PopFront()
	g.Unlock()

	if hasSend {
		send.SetTimedOut(false)
		send.Sched().MakeReady(send)
	}
	return value, true
}

// Urgent writes value at the read pointer position — effectively pushing
// to the head of the queue rather than the tail — bypassing any
// send-waiter queue entirely (there is no waiting variant: Urgent on a
// full mailbox panics, where SendWait would block). Unlike the
// send-waiter queue, a blocked receive-waiter is woken exactly as Send
// wakes one, since the original's urgent does the same
// (original_source's mailbox urgent path wakes its dequeue waiter): a
// thread parked in Receive on an empty mailbox must not be left hanging
// just because the message arrived via Urgent instead of Send. Panics if
// the mailbox is full.
func (m *Mailbox[T]) Urgent(t *ksched.Thread, value T) {
	g := m.mu.Lock(m.lockTag(t))
	if m.count == len(m.buf) {
		g.Unlock()
		kerrors.Invariant("ksyncobj: Urgent called on a full mailbox")
	}
	m.readPos = (m.readPos - 1 + len(m.buf)) % len(m.buf)
	m.buf[m.readPos] = value
	m.count++

	recv, hasRecv := m.recvWaiters.PopFront()
	g.Unlock()

	if hasRecv {
		recv.SetTimedOut(false)
		recv.Sched().MakeReady(recv)
	}
}

// Len returns the number of items currently queued.
func (m *Mailbox[T]) Len(t *ksched.Thread) int {
	g := m.mu.Lock(m.lockTag(t))
	defer g.Unlock()
	return m.count
}
