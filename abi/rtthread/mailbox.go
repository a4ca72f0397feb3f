package rtthread

import (
	"time"

	"github.com/blueos-go/kernel/karch"
	"github.com/blueos-go/kernel/ksched"
	"github.com/blueos-go/kernel/ksyncobj"
	"github.com/blueos-go/kernel/ktimer"
)

// Mailbox is the rt_mb_t analogue: a bounded FIFO of machine-word-sized
// messages, the role rt-thread uses rt_ubase_t for. Go has no portable
// "pointer-or-integer" word type, so messages here are a plain uintptr;
// callers porting pointer-carrying call sites cast through it exactly as
// the original's rt_ubase_t already required.
type Mailbox struct {
	name string
	mb   *ksyncobj.Mailbox[uintptr]
	svc  *ktimer.Service
}

// NewMailbox is the rt_mb_create analogue.
func NewMailbox(port karch.Port, svc *ktimer.Service, name string, capacity int) *Mailbox {
	return &Mailbox{name: name, mb: ksyncobj.NewMailbox[uintptr](port, capacity), svc: svc}
}

func (m *Mailbox) Name() string { return m.name }

// Send is the rt_mb_send_wait analogue.
func (m *Mailbox) Send(t *ksched.Thread, value uintptr, timeout time.Duration) error {
	if timeout < 0 {
		timeout = time.Duration(1<<63 - 1)
	}
	if m.mb.SendWait(m.svc, t, value, timeout) {
		return nil
	}
	return ErrTimeout
}

// Urgent is the rt_mb_urgent analogue: jumps the queue, never blocks.
// rt_mb_urgent reports -RT_EFULL rather than aborting when the mailbox
// has no room, so a full mailbox is translated to ErrFull here instead of
// propagating the underlying panic.
func (m *Mailbox) Urgent(t *ksched.Thread, value uintptr) (err error) {
	defer func() {
		if recover() != nil {
			err = ErrFull
		}
	}()
	m.mb.Urgent(t, value)
	return nil
}

// Recv is the rt_mb_recv analogue.
func (m *Mailbox) Recv(t *ksched.Thread, timeout time.Duration) (uintptr, error) {
	if timeout < 0 {
		timeout = time.Duration(1<<63 - 1)
	}
	value, ok := m.mb.Receive(m.svc, t, timeout)
	if !ok {
		return 0, ErrTimeout
	}
	return value, nil
}
