package rtthread

import (
	"time"

	"github.com/blueos-go/kernel/ksched"
	"github.com/blueos-go/kernel/ksyncobj"
	"github.com/blueos-go/kernel/ktimer"
)

// Event option bits, named after RT_EVENT_FLAG_AND/OR/CLEAR: Recv's option
// selects AND (every requested bit, the default) or OR (any requested
// bit), and independently whether satisfied bits are cleared on the way
// out.
const (
	EventFlagOR    uint8 = 1 << 0
	EventFlagAND   uint8 = 0
	EventFlagClear uint8 = 1 << 1
)

// WaitForever mirrors rt-thread's -1 "block with no timeout" sentinel: any
// negative timeout passed to Recv blocks indefinitely instead of
// expiring.
const WaitForever time.Duration = -1

// Event is the rt_event_t analogue: a named flag word threads Send bits
// into and Recv bits out of, qualified by the AND/OR/CLEAR option byte a
// caller supplies per-wait rather than per-object.
type Event struct {
	name  string
	flags *ksyncobj.EventFlags
	svc   *ktimer.Service
}

// NewEvent is the rt_event_create analogue: name labels the event purely
// for diagnostics, mirroring rt-thread's object-registry name (this
// rendition keeps no separate object registry, so the name is just
// carried on the value).
func NewEvent(svc *ktimer.Service, name string) *Event {
	return &Event{name: name, flags: ksyncobj.NewEventFlags(), svc: svc}
}

// Name returns the event's diagnostic name.
func (e *Event) Name() string { return e.name }

// Send is the rt_event_send analogue: ORs set into the flag word and
// wakes any waiter it now satisfies.
func (e *Event) Send(t *ksched.Thread, set uint32) error {
	if set == 0 {
		return ErrInvalid
	}
	e.flags.Set(t, set)
	return nil
}

// Recv is the rt_event_recv analogue: blocks t until set is satisfied
// under option, for up to timeout (WaitForever to block indefinitely),
// returning the bits observed at satisfaction.
func (e *Event) Recv(t *ksched.Thread, set uint32, option uint8, timeout time.Duration) (recved uint32, err error) {
	if set == 0 {
		return 0, ErrInvalid
	}
	mode := ksyncobj.WaitAll
	if option&EventFlagOR != 0 {
		mode = ksyncobj.WaitAny
	}
	clear := option&EventFlagClear != 0

	if timeout < 0 {
		timeout = time.Duration(1<<63 - 1)
	}
	observed, ok := e.flags.Wait(e.svc, t, set, mode, clear, timeout)
	if !ok {
		return 0, ErrTimeout
	}
	return observed, nil
}

// Control is the rt_event_control analogue; RT_IPC_CMD_RESET is the only
// command rt-thread defines for events, so it is the only one modeled
// here. Any other cmd returns ErrInvalid, the rt_event_control ENOSYS
// case translated to this package's error set.
func (e *Event) Control(t *ksched.Thread, cmd string) error {
	switch cmd {
	case "reset":
		e.flags.Clear(t, ^uint32(0))
		return nil
	default:
		return ErrInvalid
	}
}
