package rtthread

import (
	"time"

	"github.com/blueos-go/kernel/ksched"
	"github.com/blueos-go/kernel/ksyncobj"
	"github.com/blueos-go/kernel/ktimer"
)

// Semaphore is the rt_sem_t analogue: a named counting semaphore.
type Semaphore struct {
	name string
	sem  *ksyncobj.Semaphore
	svc  *ktimer.Service
}

// NewSemaphore is the rt_sem_create analogue. max bounds the count the
// way rt-thread's semaphores, uncapped in the original C struct, are not;
// this rendition requires a cap up front per this kernel's Semaphore
// constructor.
func NewSemaphore(svc *ktimer.Service, name string, initial, max uint32) *Semaphore {
	return &Semaphore{name: name, sem: ksyncobj.NewSemaphore(initial, max), svc: svc}
}

func (s *Semaphore) Name() string { return s.name }

// Take is the rt_sem_take analogue: timeout 0 behaves like
// RT_WAITING_NO, a negative timeout like rt-thread's RT_WAITING_FOREVER.
func (s *Semaphore) Take(t *ksched.Thread, timeout time.Duration) error {
	if timeout == 0 {
		if s.sem.TryAcquire(t) {
			return nil
		}
		return ErrTimeout
	}
	if timeout < 0 {
		timeout = time.Duration(1<<63 - 1)
	}
	if s.sem.AcquireTimeout(s.svc, t, timeout) {
		return nil
	}
	return ErrTimeout
}

// Release is the rt_sem_release analogue.
func (s *Semaphore) Release(t *ksched.Thread) { s.sem.Release(t) }

// Value is the rt_sem_control RT_IPC_CMD_GET_STATE analogue, reporting
// the current count.
func (s *Semaphore) Value() uint32 { return s.sem.Count() }
