// Package karch defines the architecture port contract — the seam between
// the portable kernel and a concrete CPU — and simport, a goroutine-backed
// implementation of that contract used by every test and the in-repo
// demo. A real port (Cortex-M, AArch64, RISC-V) would implement Port by
// hand-writing a context-switch trampoline and programming the interrupt
// controller directly; Go has no portable way to do either (no raw stack
// pointers, no inline assembly, a moving/precise GC that forbids treating
// arbitrary memory as a saved register file), so simport models the same
// contract with an explicit state machine arbitrating goroutines that park
// at the same suspension points a real port's trampoline would use. This
// is a deliberate, load-bearing simplification, not a cut corner: every
// invariant the spec states about thread state transitions is enforced by
// simport exactly as a real port would have to enforce it in hardware.
package karch

import "context"

// IRQGuard is returned by MaskIRQ and restores the prior interrupt mask
// when released — the Go analogue of a real port's irqsave/irqrestore
// pair. On real hardware this toggles PRIMASK/BASEPRI (Cortex-M) or DAIF
// (AArch64); simport implements it as a per-CPU boolean guarded by a
// per-CPU sync.Mutex, i.e. the PRIMASK "mask everything" strategy rather
// than BASEPRI's priority-threshold strategy — there being no interrupt
// priority levels to threshold against in a goroutine simulation.
type IRQGuard interface {
	Release()
}

// ContextHandle is an opaque per-thread execution context. A real port
// would have this own a stack and a trampoline entry point; simport backs
// it with a parked goroutine.
type ContextHandle interface {
	// Resume transfers control to this context, suspending the caller's.
	// It returns when this context next yields or blocks.
	Resume()
}

// Port is the contract every architecture backend must satisfy. ksched
// depends only on this interface, never on a concrete backend, so the
// scheduler compiles and tests identically against simport today and
// against a real port later.
type Port interface {
	// CoreCount reports the number of logical CPUs this port exposes.
	CoreCount() int

	// CurrentCore returns the index of the CPU the calling goroutine is
	// modelled as running on.
	CurrentCore() int

	// NewContext creates a suspended execution context that will invoke
	// entry when first resumed. entry is handed a yield function: calling
	// it is this context's only suspension point, the Go analogue of a
	// real port's PendSV trampoline saving registers and returning to the
	// scheduler. ctx is the owning thread's lifetime context; ksched
	// passes context.Background(), which is never cancelled.
	NewContext(ctx context.Context, entry func(yield func())) ContextHandle

	// SwitchTo transfers control from the current context to next on
	// the given core. It does not return until the current context is
	// resumed again.
	SwitchTo(core int, next ContextHandle)

	// MaskIRQ disables delivery of simulated interrupts (the tick and
	// any pending soft-IRQ work) on the current core until the returned
	// guard is released. Used by spinlock's irqsave flavor.
	MaskIRQ() IRQGuard

	// Idle parks the calling core until woken by a tick, an IRQ, or an
	// explicit Kick, the simulation's analogue of WFI/WFE.
	Idle(core int)

	// Kick wakes a core parked in Idle, e.g. because another core made
	// a thread Ready for it.
	Kick(core int)
}
