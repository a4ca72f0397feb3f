package ktimer

import (
	"time"

	"github.com/blueos-go/kernel/ksched"
)

// SuspendFor parks t for approximately d, waking it via the timer service
// rather than a wait queue. Used for plain sleeps, where no resource is
// being waited on. Always returns with t.TimedOut() == true, since there
// is no other way for this wait to end.
func SuspendFor(svc *Service, t *ksched.Thread, d time.Duration) {
	t.SetTimedOut(false)
	t.Suspend(func() {
		svc.After(d, func() {
			t.SetTimedOut(true)
			t.Sched().MakeReady(t)
		})
	}, nil)
}

// ArmTimeout arms a one-shot timer that, unless Canceled first, attempts
// to remove t from whatever wait queue it is parked on via onTimeout,
// which must report whether this call actually performed the removal.
// The normal-wake path (Release, Send, AtomicWake, ...) and the timeout
// path race to dequeue the same entry under the same spinlock, so at most
// one of them ever observes a successful removal; per spec §5's
// compare-exchange requirement, only that winner may mark t timed-out and
// make it Ready. A timeout that loses the race (onTimeout reports false,
// meaning a normal wake already popped the entry and called MakeReady
// itself) is a no-op: t has already been woken through the other path and
// must not be handed a second, spurious MakeReady.
func ArmTimeout(svc *Service, t *ksched.Thread, timeout time.Duration, onTimeout func() bool) *Timer {
	return svc.After(timeout, func() {
		if onTimeout != nil && !onTimeout() {
			return
		}
		t.SetTimedOut(true)
		t.Sched().MakeReady(t)
	})
}
