// Package kerrors defines the kernel's error taxonomy (spec §7). Errors are
// always returned from the call site — the kernel never longjmp-style
// unwinds on a recoverable condition — and are composable with errors.Is
// and errors.As, the same way eventloop's TypeError/RangeError/TimeoutError
// are (eventloop/errors.go). Internal invariant violations still call
// panic; see [Invariant].
package kerrors

import (
	"errors"
	"fmt"
)

// Class identifies which branch of the kernel's error taxonomy an error
// belongs to, for ABI shims that need to map onto a foreign status space
// (CMSIS osStatus_t, RT-Thread rt_err_t).
type Class int

const (
	// ClassInvalidArgument: null object handle, out-of-range priority,
	// misaligned stack, a timeout passed to an ISR-context call.
	ClassInvalidArgument Class = iota
	// ClassNotPermittedInISR: a blocking operation issued from interrupt
	// context.
	ClassNotPermittedInISR
	// ClassResourceExhausted: allocator returned null, or a sync
	// primitive's capacity was reached with no-wait requested.
	ClassResourceExhausted
	// ClassTimedOut: a timed wait expired without being woken.
	ClassTimedOut
	// ClassInterrupted: an interruptible wait was woken by a
	// signal-equivalent rather than by the event it waited for.
	ClassInterrupted
	// ClassStateViolation: mutex released by a non-owner, detach of an
	// already-detached object, use of a retired/deleted object.
	ClassStateViolation
)

func (c Class) String() string {
	switch c {
	case ClassInvalidArgument:
		return "invalid-argument"
	case ClassNotPermittedInISR:
		return "not-permitted-in-isr"
	case ClassResourceExhausted:
		return "resource-exhausted"
	case ClassTimedOut:
		return "timed-out"
	case ClassInterrupted:
		return "interrupted"
	case ClassStateViolation:
		return "state-violation"
	default:
		return "unknown"
	}
}

// KernelError is the concrete error type for every taxonomy class. Message
// is free text; Cause, if set, participates in errors.Is/errors.As via
// Unwrap.
type KernelError struct {
	Class   Class
	Message string
	Cause   error
}

func (e *KernelError) Error() string {
	if e.Message == "" {
		return e.Class.String()
	}
	return e.Class.String() + ": " + e.Message
}

func (e *KernelError) Unwrap() error {
	return e.Cause
}

// Is matches by Class, ignoring Message/Cause, so callers can write
// errors.Is(err, kerrors.ErrTimedOut) against a wrapped instance.
func (e *KernelError) Is(target error) bool {
	var other *KernelError
	if errors.As(target, &other) {
		return other.Class == e.Class
	}
	return false
}

// New constructs a KernelError of the given class.
func New(class Class, message string) *KernelError {
	return &KernelError{Class: class, Message: message}
}

// Wrap constructs a KernelError of the given class with an underlying
// cause.
func Wrap(class Class, message string, cause error) *KernelError {
	return &KernelError{Class: class, Message: message, Cause: cause}
}

// Sentinel instances for errors.Is comparisons, one per class, mirroring
// eventloop/loop.go's package-level Err* variables.
var (
	ErrInvalidArgument   = New(ClassInvalidArgument, "")
	ErrNotPermittedInISR = New(ClassNotPermittedInISR, "")
	ErrResourceExhausted = New(ClassResourceExhausted, "")
	ErrTimedOut          = New(ClassTimedOut, "")
	ErrInterrupted       = New(ClassInterrupted, "")
	ErrStateViolation    = New(ClassStateViolation, "")
)

// Invariant panics with a formatted message, for internal kernel
// inconsistencies that spec §4.9/§7 say must panic rather than return an
// error (e.g. an assertion about ready-queue exclusivity failing). It is
// always compiled in; no build tag turns it or [Assert] off.
func Invariant(format string, args ...any) {
	panic(fmt.Sprintf("kernel invariant violated: "+format, args...))
}

// Assert panics via Invariant if cond is false. The check always runs;
// there is no switch that disables it.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		Invariant(format, args...)
	}
}
