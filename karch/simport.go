package karch

import (
	"context"
	"sync"
)

// simContext is simport's ContextHandle: a goroutine parked on a pair of
// unbuffered channels, standing in for a saved CPU register file.
type simContext struct {
	resume chan struct{}
	parked chan struct{}
	exited chan struct{}
	once   sync.Once
}

func newSimContext(ctx context.Context, entry func(yield func())) *simContext {
	c := &simContext{
		resume: make(chan struct{}),
		parked: make(chan struct{}),
		exited: make(chan struct{}),
	}
	go func() {
		<-c.resume
		yield := func() {
			c.parked <- struct{}{}
			<-c.resume
		}
		entry(yield)
		close(c.exited)
	}()
	// This goroutine only waits for ctx to end and then returns; it does
	// not stop the entry goroutine above, which keeps waiting for its
	// first Resume whether or not ctx is cancelled.
	go func() {
		<-ctx.Done()
	}()
	return c
}

// Resume implements ContextHandle.
func (c *simContext) Resume() {
	c.resume <- struct{}{}
	select {
	case <-c.parked:
	case <-c.exited:
	}
}

// simCore holds the per-CPU state SimPort tracks: the IRQ mask (PRIMASK-
// style, all-or-nothing) and the idle/kick rendezvous.
type simCore struct {
	mu        sync.Mutex
	irqMasked bool
	kick      chan struct{}
}

// SimPort is the goroutine-backed Port implementation used by every test
// and the in-repo simulator. It is not a performance shim for a future
// real port — it is the only backend this repository ships, documented
// as such in §0 of the design notes.
type SimPort struct {
	cores []*simCore
}

// NewSimPort constructs a SimPort exposing the given number of logical
// CPUs.
func NewSimPort(coreCount int) *SimPort {
	if coreCount < 1 {
		coreCount = 1
	}
	p := &SimPort{cores: make([]*simCore, coreCount)}
	for i := range p.cores {
		p.cores[i] = &simCore{kick: make(chan struct{}, 1)}
	}
	return p
}

func (p *SimPort) CoreCount() int { return len(p.cores) }

// CurrentCore always returns 0 for simport: the simulation does not pin
// goroutines to OS threads, so "current CPU" is whatever ksched's own
// per-core dispatch loop believes it is — callers that need the real
// answer track it themselves, the same way ksched's dispatcher does.
func (p *SimPort) CurrentCore() int { return 0 }

func (p *SimPort) NewContext(ctx context.Context, entry func(yield func())) ContextHandle {
	return newSimContext(ctx, entry)
}

func (p *SimPort) SwitchTo(core int, next ContextHandle) {
	next.Resume()
}

type simIRQGuard struct {
	core *simCore
	prev bool
}

func (g *simIRQGuard) Release() {
	g.core.mu.Lock()
	g.core.irqMasked = g.prev
	g.core.mu.Unlock()
}

func (p *SimPort) MaskIRQ() IRQGuard {
	c := p.cores[0]
	c.mu.Lock()
	prev := c.irqMasked
	c.irqMasked = true
	c.mu.Unlock()
	return &simIRQGuard{core: c, prev: prev}
}

// Idle parks the calling goroutine until Kick is called for the same
// core, simulating WFI/WFE.
func (p *SimPort) Idle(core int) {
	<-p.cores[core].kick
}

// Kick wakes a core parked in Idle. Non-blocking: if the core is not
// currently idle, the kick is buffered for its next Idle call, matching
// WFE's "event register" latch semantics.
func (p *SimPort) Kick(core int) {
	select {
	case p.cores[core].kick <- struct{}{}:
	default:
	}
}
