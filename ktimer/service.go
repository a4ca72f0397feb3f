package ktimer

import (
	"time"

	"github.com/blueos-go/kernel/kerrors"
	"github.com/blueos-go/kernel/ksched"
	"github.com/blueos-go/kernel/ksync"
)

// Option configures a Service at construction.
type Option interface{ apply(*config) }

type config struct {
	tickPeriod      time.Duration
	softQueueDepth  int
	softThreadPrio  int32
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

// WithTickPeriod sets the wall-clock interval between ticks. Default 1ms.
func WithTickPeriod(d time.Duration) Option {
	return optionFunc(func(c *config) { c.tickPeriod = d })
}

// WithSoftTimerQueueDepth bounds how many fired-but-not-yet-run callbacks
// the soft-timer thread's queue can hold; a tick that finds the queue full
// panics via kerrors.Invariant. Default 64.
func WithSoftTimerQueueDepth(n int) Option {
	return optionFunc(func(c *config) { c.softQueueDepth = n })
}

// WithSoftTimerPriority sets the soft-timer thread's scheduling priority.
// Default is high (numerically low) so timer callbacks run promptly.
func WithSoftTimerPriority(p int32) Option {
	return optionFunc(func(c *config) { c.softThreadPrio = p })
}

func resolveConfig(opts []Option) config {
	c := config{tickPeriod: time.Millisecond, softQueueDepth: 64, softThreadPrio: 4}
	for _, o := range opts {
		o.apply(&c)
	}
	return c
}

// Service drives a Wheel from a real-time ticker and runs due callbacks on
// a dedicated kernel thread (the "soft-timer thread"), never from the tick
// goroutine itself, matching the package doc's ISR/bottom-half split.
type Service struct {
	wheel *Wheel
	mu    ksync.Spinlock

	sched      *ksched.Scheduler
	softThread *ksched.Thread
	pending    chan *Timer

	tickPeriod time.Duration
	stop       chan struct{}
}

// NewService constructs and wires a Service onto sched, spawning its
// soft-timer thread (not yet started ticking; call Run to begin).
func NewService(sched *ksched.Scheduler, opts ...Option) *Service {
	c := resolveConfig(opts)
	s := &Service{
		wheel:      NewWheel(),
		sched:      sched,
		pending:    make(chan *Timer, c.softQueueDepth),
		tickPeriod: c.tickPeriod,
		stop:       make(chan struct{}),
	}
	s.softThread = sched.NewBuilder().
		WithPriority(c.softThreadPrio).
		WithEntry(s.runSoftTimerThread).
		Build()
	sched.Spawn(s.softThread)
	return s
}

func (s *Service) serviceLockTag() int64 { return -(1 << 41) }

// runSoftTimerThread drains fired timers and invokes their callbacks. It
// never touches s.mu: by the time a *Timer reaches this channel it has
// already been removed from the wheel's bookkeeping by Advance.
func (s *Service) runSoftTimerThread(t *ksched.Thread) {
	for {
		select {
		case timer := <-s.pending:
			if timer.callback != nil {
				timer.callback()
			}
		case <-s.stop:
			return
		}
		t.Yield()
	}
}

// Run ticks the wheel forward every tick period until Stop is called.
// Intended to be run on its own goroutine (it blocks), standing in for
// the original's timer-interrupt handler.
func (s *Service) Run() {
	ticker := time.NewTicker(s.tickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.stop:
			return
		}
	}
}

func (s *Service) tick() {
	g := s.mu.Lock(s.serviceLockTag())
	fired := s.wheel.Advance()
	g.Unlock()

	for _, t := range fired {
		select {
		case s.pending <- t:
		default:
			kerrors.Invariant("ktimer: soft-timer queue overflow, callback dropped")
		}
	}
}

// Stop halts the tick loop and the soft-timer thread.
func (s *Service) Stop() { close(s.stop) }

// After arms a one-shot timer firing callback approximately after d, and
// returns a handle that Cancel can disarm before it fires.
func (s *Service) After(d time.Duration, callback func()) *Timer {
	g := s.mu.Lock(s.serviceLockTag())
	defer g.Unlock()
	t := &Timer{
		deadline: s.wheel.CurrentTick() + s.durationToTicks(d),
		callback: callback,
	}
	s.wheel.Add(t)
	return t
}

// Every arms a periodic timer, re-armed for another d after each fire.
func (s *Service) Every(d time.Duration, callback func()) *Timer {
	g := s.mu.Lock(s.serviceLockTag())
	defer g.Unlock()
	ticks := s.durationToTicks(d)
	t := &Timer{
		deadline: s.wheel.CurrentTick() + ticks,
		period:   ticks,
		callback: callback,
	}
	s.wheel.Add(t)
	return t
}

// Cancel disarms t. Idempotent: canceling an already-fired or already-
// canceled timer is a harmless no-op.
func (s *Service) Cancel(t *Timer) {
	g := s.mu.Lock(s.serviceLockTag())
	defer g.Unlock()
	s.wheel.Cancel(t)
}

func (s *Service) durationToTicks(d time.Duration) uint64 {
	ticks := uint64(d / s.tickPeriod)
	if ticks == 0 {
		ticks = 1
	}
	return ticks
}
