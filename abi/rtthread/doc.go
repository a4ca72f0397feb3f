// Package rtthread provides thin, Go-idiomatic translations of the
// rt-thread IPC object surface (rt_event_*, rt_sem_*, rt_mutex_*,
// rt_mb_*) onto this kernel's own primitives. It exists for porting code
// written against that object model without dragging in a C ABI: each
// type here wraps one of the core synchronization objects and exposes
// the same operations rt-thread names, spelled as ordinary Go methods
// returning (value, error) instead of an out-pointer and an rt_err_t.
//
// Flag/option bytes (RT_EVENT_FLAG_*, and friends) are kept as named Go
// constants rather than collapsed away, since callers porting existing
// call sites will reach for them by name.
package rtthread

import "errors"

// Errors mirror the handful of rt_err_t codes these shims can actually
// produce; RT_EOK has no Go analogue since the absence of an error
// already signals success.
var (
	// ErrTimeout corresponds to -RT_ETIMEOUT: the operation's timeout
	// elapsed before it could complete.
	ErrTimeout = errors.New("rtthread: timed out")
	// ErrInvalid corresponds to -RT_EINVAL: a bad argument (a zero flag
	// word, or an unrecognized Event.Control command) was supplied.
	ErrInvalid = errors.New("rtthread: invalid argument")
	// ErrFull corresponds to -RT_EFULL: a bounded queue had no room and
	// the caller asked for an immediate, non-blocking attempt.
	ErrFull = errors.New("rtthread: queue full")
)
