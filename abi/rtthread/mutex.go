package rtthread

import (
	"github.com/blueos-go/kernel/ksched"
)

// Mutex is the rt_mutex_t analogue: a priority-inheriting recursive lock,
// named purely for diagnostics the way rt-thread's object registry would
// carry it.
type Mutex struct {
	name string
	mu   *ksched.Mutex
}

// NewMutex is the rt_mutex_create analogue.
func NewMutex(sched *ksched.Scheduler, name string) *Mutex {
	return &Mutex{name: name, mu: ksched.NewMutex(sched)}
}

func (m *Mutex) Name() string { return m.name }

// Take is the rt_mutex_take analogue. This kernel's Mutex always blocks
// until acquired (no timeout or try variant), matching rt-thread's
// default RT_WAITING_FOREVER behavior; a timed or non-blocking take is
// not offered since the underlying boost protocol assumes the waiter
// eventually gets the lock rather than giving up mid-boost.
func (m *Mutex) Take(t *ksched.Thread) { m.mu.Lock(t) }

// Release is the rt_mutex_release analogue.
func (m *Mutex) Release(t *ksched.Thread) { m.mu.Unlock(t) }
