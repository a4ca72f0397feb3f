// Package ksched implements the thread and scheduler core (spec §4.3),
// including the priority-inheriting Mutex (§4.3's boost protocol needs a
// live back-reference between a blocked thread and the mutex it pends on,
// and between a mutex and its owner — see DESIGN.md for why that keeps
// Mutex in this package rather than in ksyncobj alongside the other
// synchronization primitives).
package ksched

import (
	"context"
	"sync/atomic"

	"github.com/blueos-go/kernel/karch"
	"github.com/blueos-go/kernel/kerrors"
	"github.com/blueos-go/kernel/klist"
)

// State is a thread's position in the state machine the spec requires:
// a thread is in exactly one of these states at any instant.
type State int32

const (
	StateReady State = iota
	StateRunning
	StateSuspended
	StateRetired
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateRetired:
		return "retired"
	default:
		return "unknown"
	}
}

// Thread is the kernel's schedulable unit. Unlike the original, which
// carves a Context struct at the top of a caller-owned stack and writes a
// trampoline return address into it, a Thread here is backed by a
// karch.ContextHandle — a parked goroutine — since Go offers no portable
// way to hand-construct a register/stack frame. Builder.Build still
// performs the conceptually equivalent steps: it allocates the context,
// registers the entry point, and pushes the thread onto the global list.
type Thread struct {
	id           uint64
	priority     atomic.Int32
	basePriority int32
	kind         Kind
	state        atomic.Int32
	core         atomic.Int32

	sched      *Scheduler
	ctx        karch.ContextHandle
	yieldFn    func()
	globalNode klist.Node[Thread]

	// pendingHook is set by this thread immediately before it parks
	// (yields, blocks, or retires) and run by whichever dispatcher next
	// resumes a different context on this thread's core — the Go
	// analogue of the hook holder's steps 2-6, run "on the new stack".
	// Only ever touched by this thread's own goroutine (writer) and the
	// owning dispatcher loop (reader), and the parked-goroutine
	// handshake in karch establishes happens-before between the two, so
	// no additional lock is needed.
	pendingHook func()

	pendingMutex atomic.Pointer[Mutex]
	ownedMutexes []*Mutex // changed under the acquired/released Mutex's own spinlock; priority-restore on release walks this

	timedOut atomic.Bool
	cleanup  func()

	exited chan struct{}
}

// Kind distinguishes ordinary threads from the per-core idle thread,
// which the spec calls out as needing no stack-exhaustion checks. The
// dispatcher falls back to a core's idle thread when the ready queue is
// empty; when the idle thread yields, it is pushed onto the ready queue
// like any other thread.
type Kind int

const (
	KindNormal Kind = iota
	KindIdle
)

// ID returns the thread's unique, never-reused identifier.
func (t *Thread) ID() uint64 { return t.id }

// Priority returns the thread's current effective priority (which may be
// boosted above BasePriority by priority inheritance).
func (t *Thread) Priority() int32 { return t.priority.Load() }

// BasePriority returns the thread's priority as created ("origin_priority"),
// unaffected by any inheritance boost.
func (t *Thread) BasePriority() int32 { return t.basePriority }

// State returns the thread's current scheduler state.
func (t *Thread) State() State { return State(t.state.Load()) }

// TimedOut reports whether the thread's most recent timed wait expired
// before being woken. Valid only immediately after such a wait returns.
func (t *Thread) TimedOut() bool { return t.timedOut.Load() }

// SetTimedOut records whether the thread's current wait ended via timeout
// rather than a normal wake. Called by ktimer/ksyncobj's timed-wait
// helpers, never by application code directly.
func (t *Thread) SetTimedOut(v bool) { t.timedOut.Store(v) }

// Sched returns the scheduler that owns this thread, so packages that
// only hold a *Thread (ktimer, ksyncobj) can still reach MakeReady etc.
func (t *Thread) Sched() *Scheduler { return t.sched }

func (t *Thread) setPriority(p int32) { t.priority.Store(p) }

func (t *Thread) setState(s State) { t.state.Store(int32(s)) }

// Builder constructs a Thread using the spec's builder pattern: entry,
// priority, and kind are set before Build pushes the thread onto the
// global list; Scheduler.Spawn then makes it Ready.
type Builder struct {
	sched    *Scheduler
	priority int32
	kind     Kind
	entry    func(*Thread)
	cleanup  func()
}

// NewBuilder starts construction of a thread owned by sched.
func (s *Scheduler) NewBuilder() *Builder {
	return &Builder{sched: s, priority: 128, kind: KindNormal}
}

// WithPriority sets the thread's initial priority. Lower numeric values
// are higher priority, matching the spec's ordering convention.
func (b *Builder) WithPriority(p int32) *Builder {
	b.priority = p
	return b
}

// WithKind sets the thread's kind (KindNormal or KindIdle).
func (b *Builder) WithKind(k Kind) *Builder {
	b.kind = k
	return b
}

// WithEntry sets the thread body. entry is invoked once the thread is
// first resumed and should cooperate with the scheduler by periodically
// calling Thread.Yield, or by blocking through ksched/ksyncobj
// primitives, rather than running forever without ever giving up a core.
func (b *Builder) WithEntry(entry func(*Thread)) *Builder {
	b.entry = entry
	return b
}

// WithCleanup sets a closure run once, after the thread retires, inside
// the hook of whichever thread is switched to next — matching the
// original's "cleanup closure... run inside the hook" contract.
func (b *Builder) WithCleanup(cleanup func()) *Builder {
	b.cleanup = cleanup
	return b
}

// Build allocates the thread's context and pushes it onto the global
// thread list, leaving it Suspended; Scheduler.Spawn makes it Ready.
func (b *Builder) Build() *Thread {
	if b.entry == nil {
		kerrors.Invariant("ksched: Builder.Build called with no entry")
	}
	t := &Thread{
		id:           b.sched.nextID.Add(1),
		basePriority: b.priority,
		kind:         b.kind,
		sched:        b.sched,
		cleanup:      b.cleanup,
		exited:       make(chan struct{}),
	}
	t.priority.Store(b.priority)
	t.core.Store(-1)
	t.state.Store(int32(StateSuspended))
	t.globalNode = *klist.NewNode(t)

	entry := b.entry
	t.ctx = b.sched.port.NewContext(context.Background(), func(yield func()) {
		t.yieldFn = yield
		entry(t)
		b.sched.retireCurrent(t)
		close(t.exited)
	})

	b.sched.registerThread(t)
	return t
}
