// Package ksyscall implements the stable syscall number table and
// dispatcher (spec §4.8): a small integer selects a handler with a
// strongly-typed Go signature, in place of the original's six-register
// trap frame transmuted into each handler's declared argument types.
// Arguments here are passed as a plain Go slice of int64, the closest
// portable analogue, and each handler still returns a signed result
// (>= 0 success, a negative errno-style code on failure) so a caller
// written against the original ABI's calling convention translates
// directly.
package ksyscall

import (
	"github.com/blueos-go/kernel/kerrors"
)

// Number identifies a syscall, matching spec §4.8's small integer `nr`.
type Number int32

const (
	Nop Number = iota
	GetTid
	CreateThread
	ExitThread
	SchedYield
	AtomicWait
	AtomicWake
	SemAcquire
	SemRelease
	numSyscalls
)

func (n Number) String() string {
	switch n {
	case Nop:
		return "Nop"
	case GetTid:
		return "GetTid"
	case CreateThread:
		return "CreateThread"
	case ExitThread:
		return "ExitThread"
	case SchedYield:
		return "SchedYield"
	case AtomicWait:
		return "AtomicWait"
	case AtomicWake:
		return "AtomicWake"
	case SemAcquire:
		return "SemAcquire"
	case SemRelease:
		return "SemRelease"
	default:
		return "Unknown"
	}
}

// Errno-style negative result codes, mirroring the original's "negated
// errno on failure" convention.
const (
	EINVAL = -1
	EAGAIN = -2
	ETIMEDOUT = -3
)

// Handler services one syscall number. args is laid out positionally the
// same way the original's six registers are, just without the
// register-width transmute.
type Handler func(args []int64) int64

// Table is the dispatcher: a fixed array indexed by Number, matching the
// original's "plain match on nr" — a slice lookup is this dispatcher's Go
// equivalent of a jump table.
type Table struct {
	handlers [numSyscalls]Handler
}

// NewTable constructs an empty table; every slot traps to an EINVAL
// handler until Register is called, matching the original's behavior for
// an as-yet-unimplemented or out-of-range number.
func NewTable() *Table {
	t := &Table{}
	for i := range t.handlers {
		t.handlers[i] = func(args []int64) int64 { return EINVAL }
	}
	return t
}

// Register installs h for nr. Panics if nr is out of range: wiring an
// invalid syscall number is a programming error, not a runtime condition.
func (t *Table) Register(nr Number, h Handler) {
	if nr < 0 || int(nr) >= len(t.handlers) {
		kerrors.Invariant("ksyscall: Register called with out-of-range number %d", nr)
	}
	t.handlers[nr] = h
}

// Dispatch invokes the handler registered for nr, or returns EINVAL if nr
// is out of range.
func (t *Table) Dispatch(nr Number, args []int64) int64 {
	if nr < 0 || int(nr) >= len(t.handlers) {
		return EINVAL
	}
	return t.handlers[nr](args)
}
