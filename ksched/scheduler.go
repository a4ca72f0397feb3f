package ksched

import (
	"sync/atomic"

	"github.com/blueos-go/kernel/karch"
	"github.com/blueos-go/kernel/kerrors"
	"github.com/blueos-go/kernel/klist"
	"github.com/blueos-go/kernel/klog"
	"github.com/blueos-go/kernel/ksync"
)

// coreDispatcherTag and below are Spinlock owner tags: threads tag
// themselves with their own id (always >= 1), so per-core dispatcher
// loops — which are not threads — use negative tags to guarantee no
// collision.
func coreDispatcherTag(core int) int64 { return -1 - int64(core) }

// Hooks lets tests observe context-switch hand-off deterministically,
// mirroring the teacher's loopTestHooks convention of before/after
// instrumentation points that production code never sets.
type Hooks struct {
	BeforeSwitch func(core int, from, to *Thread)
	AfterSwitch  func(core int, from, to *Thread)
}

// Option configures a Scheduler at construction time.
type Option interface{ apply(*config) }

type config struct {
	cores int
	hooks Hooks
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

// WithCores sets the number of logical CPUs the scheduler dispatches
// across. Default 1.
func WithCores(n int) Option {
	return optionFunc(func(c *config) { c.cores = n })
}

// WithHooks installs test instrumentation hooks. Not for production use.
func WithHooks(h Hooks) Option {
	return optionFunc(func(c *config) { c.hooks = h })
}

func resolveConfig(opts []Option) config {
	c := config{cores: 1}
	for _, o := range opts {
		o.apply(&c)
	}
	return c
}

// Scheduler is the kernel's multi-core scheduler: one global,
// priority-ordered ready queue, one dispatcher loop per core, and the
// global thread list. All mutable shared state — the ready queue, the
// thread list, and each core's current-thread slot — is guarded by mu, a
// single plain ksync.Spinlock, matching the spec's "each has a
// clearly-scoped lock" requirement for global mutable state. mu is not
// the irqsave flavor: holding it does not mask simulated interrupts.
type Scheduler struct {
	port  karch.Port
	mu    ksync.Spinlock
	ready *ksync.WaitQueue[*Thread]

	threads klist.List[Thread]

	current []atomic.Pointer[Thread]
	idle    []*Thread

	nextID atomic.Uint64
	hooks  Hooks
}

// threadLess orders the ready queue by priority, lower value first
// (higher priority), ties broken FIFO by relying on WaitQueue's stable
// insert-after-last-equal-or-lower behaviour.
func threadLess(a, b *Thread) bool { return a.Priority() < b.Priority() }

// NewScheduler constructs a Scheduler with one idle thread per core.
func NewScheduler(port karch.Port, opts ...Option) *Scheduler {
	c := resolveConfig(opts)
	if c.cores < 1 {
		c.cores = 1
	}
	s := &Scheduler{
		port:    port,
		ready:   ksync.NewWaitQueue[*Thread](ksync.PriorityOrder, threadLess),
		current: make([]atomic.Pointer[Thread], c.cores),
		idle:    make([]*Thread, c.cores),
		hooks:   c.hooks,
	}
	for i := 0; i < c.cores; i++ {
		core := i
		s.idle[i] = s.NewBuilder().
			WithKind(KindIdle).
			WithPriority(1 << 30).
			WithEntry(func(t *Thread) {
				for {
					s.port.Idle(core)
					t.Yield()
				}
			}).
			Build()
		s.idle[i].setState(StateReady)
	}
	return s
}

// CoreCount returns the number of logical CPUs this scheduler dispatches
// across.
func (s *Scheduler) CoreCount() int { return len(s.current) }

func (s *Scheduler) registerThread(t *Thread) {
	g := s.mu.Lock(coreDispatcherTag(0))
	s.threads.PushBack(&t.globalNode)
	g.Unlock()
}

// Spawn transitions t from its just-Built Suspended state to Ready and
// enqueues it, matching Builder.Build's original "pushes the thread onto
// the global thread list" step 5 followed immediately by it becoming
// schedulable.
func (s *Scheduler) Spawn(t *Thread) {
	g := s.mu.Lock(coreDispatcherTag(0))
	t.setState(StateReady)
	s.ready.PushBack(t)
	g.Unlock()
	s.port.Kick(0)
}

// Current returns the thread currently running on core, or nil if the
// dispatcher for that core has not started yet.
func (s *Scheduler) Current(core int) *Thread {
	return s.current[core].Load()
}

// pickNext pops the highest-priority Ready thread, or the core's idle
// thread if none is ready. Caller must hold s.mu.
func (s *Scheduler) pickNext(core int) *Thread {
	if next, ok := s.ready.PopFront(); ok {
		return next
	}
	return s.idle[core]
}

// RunCore is the per-core dispatcher loop: it must be run on its own
// goroutine, one per core, and never returns. It implements the context-
// switch protocol from spec §4.3: pick the next Ready thread, transition
// it Ready → Running, run whatever hook the previously-switched-away
// thread registered (steps 2–6 of the original's hook holder, executed
// here instead of "on the new stack" — Go's channel handshake in
// karch.ContextHandle.Resume already guarantees the outgoing thread is
// fully parked before this runs, which is the property the "new stack"
// trick exists to guarantee on real hardware), then switch.
func (s *Scheduler) RunCore(core int) {
	var outgoing *Thread
	var outgoingHook func()

	for {
		g := s.mu.Lock(coreDispatcherTag(core))
		next := s.pickNext(core)
		next.setState(StateRunning)
		next.core.Store(int32(core))
		s.current[core].Store(next)
		g.Unlock()

		if outgoingHook != nil {
			outgoingHook()
		}

		if s.hooks.BeforeSwitch != nil {
			s.hooks.BeforeSwitch(core, outgoing, next)
		}
		s.port.SwitchTo(core, next.ctx)
		if s.hooks.AfterSwitch != nil {
			s.hooks.AfterSwitch(core, outgoing, next)
		}

		outgoing = next
		outgoingHook = next.pendingHook
		next.pendingHook = nil
	}
}

// Yield cooperatively gives up the CPU: t is marked Ready and re-enqueued,
// then control returns to the scheduler. ksched keeps no preempt count
// and has no preemption-disable call, so Yield always gives up the CPU;
// it is never a no-op.
func (t *Thread) Yield() {
	if t.yieldFn == nil {
		kerrors.Invariant("ksched: Yield called before thread is running")
	}
	t.pendingHook = func() {
		g := t.sched.mu.Lock(coreDispatcherTag(int(t.core.Load())))
		t.setState(StateReady)
		t.sched.ready.PushBack(t)
		g.Unlock()
	}
	t.yieldFn()
}

// Suspend transitions t to Suspended and parks it, running enqueue (which
// must insert t onto whatever wait queue it is blocking on) before the
// thread gives up the CPU; no scheduler lock is held while it runs. enqueue is
// run synchronously, by the thread itself, before it parks — callers
// needing the enqueue to happen under a different (e.g. the primitive's
// own) spinlock should acquire that lock themselves inside enqueue and
// release it there, or return a release closure via postPark.
//
// postPark, if non-nil, becomes this thread's hook and runs on whichever
// dispatcher resumes the next context — the Go analogue of hook steps
// 3–5 running "on the new stack", used so a primitive's spinlock is
// dropped only once this thread is confirmed fully parked, never while
// still racing a concurrent waker.
func (t *Thread) Suspend(enqueue func(), postPark func()) {
	if t.yieldFn == nil {
		kerrors.Invariant("ksched: Suspend called before thread is running")
	}
	t.setState(StateSuspended)
	if enqueue != nil {
		enqueue()
	}
	t.pendingHook = postPark
	t.yieldFn()
}

// MakeReady transitions t from Suspended to Ready and enqueues it onto
// the scheduler's ready queue, then calls Port.Kick on every core so any
// idle one picks it up. Used by every ksyncobj primitive's wake path.
func (s *Scheduler) MakeReady(t *Thread) {
	g := s.mu.Lock(coreDispatcherTag(0))
	t.setState(StateReady)
	s.ready.PushBack(t)
	g.Unlock()
	for core := range s.current {
		s.port.Kick(core)
	}
}

// retireCurrent transitions t Running → Retired, removes it from the
// global thread list, and arranges for its cleanup closure (if any) to
// run as the next dispatcher's pre-switch hook — the original's "cleanup
// closure... run inside the hook" contract.
func (s *Scheduler) retireCurrent(t *Thread) {
	g := s.mu.Lock(coreDispatcherTag(int(t.core.Load())))
	t.setState(StateRetired)
	s.threads.Detach(&t.globalNode)
	g.Unlock()

	cleanup := t.cleanup
	t.pendingHook = func() {
		if cleanup != nil {
			cleanup()
		}
		klog.L().Debug().Uint64("thread_id", t.id).Log("thread retired")
	}
}

// ThreadCount returns the number of threads currently on the global list
// (idle threads included).
func (s *Scheduler) ThreadCount() int {
	g := s.mu.Lock(coreDispatcherTag(0))
	defer g.Unlock()
	return s.threads.Len()
}
