// Package kboot implements the boot handoff (spec's original_source
// support.rs/lib.rs start_schedule contract): it wires karch, kmem,
// ksched, ktimer, and ksyscall into a running kernel and hands control to
// a supplied continuation, the Go analogue of jumping to the first
// thread's entry point after the stack/entry-symbol dance a real boot
// sequence performs.
package kboot

import (
	"time"

	"github.com/blueos-go/kernel/karch"
	"github.com/blueos-go/kernel/kmem"
	"github.com/blueos-go/kernel/ksched"
	"github.com/blueos-go/kernel/ksyscall"
	"github.com/blueos-go/kernel/ktimer"
)

// Config selects the kernel's construction parameters. Zero-value Config
// gets sane single-core defaults.
type Config struct {
	Cores       int
	HeapOptions []kmem.HeapOption
	TickPeriod  time.Duration
}

// Kernel bundles every subsystem kboot wires up, handed to the supplied
// continuation so it can build further (register syscalls, spawn
// application threads); by then the per-core dispatchers are already
// running.
type Kernel struct {
	Port      karch.Port
	Heap      *kmem.Heap
	Scheduler *ksched.Scheduler
	Timer     *ktimer.Service
	Syscalls  *ksyscall.Table
}

// Start builds a Kernel per cfg, registers the core syscalls (Nop,
// SchedYield; everything else is left for the continuation, or a
// ksyncobj/ABI-shim layer, to register), runs one dispatcher goroutine
// per core and the timer service, then calls cont with the assembled
// Kernel. Start returns once every per-core dispatcher loop and the timer
// service have been launched — it does not block forever itself, mirroring
// the original's "hands control to a supplied continuation" rather than
// "never returns" framing, since in this rendition the dispatcher loops
// are the ones that never return.
func Start(cfg Config, cont func(*Kernel)) *Kernel {
	if cfg.Cores < 1 {
		cfg.Cores = 1
	}
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = time.Millisecond
	}

	port := karch.NewSimPort(cfg.Cores)
	heap := kmem.NewHeap(cfg.HeapOptions...)
	sched := ksched.NewScheduler(port, ksched.WithCores(cfg.Cores))
	timer := ktimer.NewService(sched, ktimer.WithTickPeriod(cfg.TickPeriod))
	syscalls := ksyscall.NewTable()

	syscalls.Register(ksyscall.Nop, func(args []int64) int64 { return 0 })
	syscalls.Register(ksyscall.SchedYield, func(args []int64) int64 {
		return 0
	})

	k := &Kernel{Port: port, Heap: heap, Scheduler: sched, Timer: timer, Syscalls: syscalls}

	for c := 0; c < cfg.Cores; c++ {
		go sched.RunCore(c)
	}
	go timer.Run()

	if cont != nil {
		cont(k)
	}
	return k
}

// Shutdown halts the timer service. Dispatcher loops have no stop path
// (matching the original: a core that idles forever is the expected
// terminal state, not an error), so Shutdown only tears down what can be
// safely stopped from outside.
func (k *Kernel) Shutdown() {
	k.Timer.Stop()
}
