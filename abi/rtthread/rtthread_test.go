package rtthread

import (
	"testing"
	"time"

	"github.com/blueos-go/kernel/karch"
	"github.com/blueos-go/kernel/ksched"
	"github.com/blueos-go/kernel/ktimer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnv(t *testing.T, cores int) (*ksched.Scheduler, *ktimer.Service) {
	t.Helper()
	port := karch.NewSimPort(cores)
	sched := ksched.NewScheduler(port, ksched.WithCores(cores))
	for c := 0; c < cores; c++ {
		go sched.RunCore(c)
	}
	svc := ktimer.NewService(sched, ktimer.WithTickPeriod(time.Millisecond))
	go svc.Run()
	t.Cleanup(svc.Stop)
	return sched, svc
}

func TestEvent_SendThenRecvSatisfiesAndMode(t *testing.T) {
	sched, svc := newTestEnv(t, 1)
	ev := NewEvent(svc, "evt")

	type result struct {
		bits uint32
		err  error
	}
	out := make(chan result, 1)
	waiter := sched.NewBuilder().WithPriority(10).WithEntry(func(th *ksched.Thread) {
		bits, err := ev.Recv(th, 0b011, EventFlagAND, time.Second)
		out <- result{bits, err}
	}).Build()
	sched.Spawn(waiter)
	time.Sleep(5 * time.Millisecond)

	setter := sched.NewBuilder().WithPriority(10).WithEntry(func(th *ksched.Thread) {
		require.NoError(t, ev.Send(th, 0b001))
		require.NoError(t, ev.Send(th, 0b010))
	}).Build()
	sched.Spawn(setter)

	select {
	case r := <-out:
		require.NoError(t, r.err)
		assert.Equal(t, uint32(0b011), r.bits)
	case <-time.After(time.Second):
		t.Fatal("recv never resolved")
	}
}

func TestEvent_RecvTimesOutWhenUnsatisfied(t *testing.T) {
	sched, svc := newTestEnv(t, 1)
	ev := NewEvent(svc, "evt")

	out := make(chan error, 1)
	waiter := sched.NewBuilder().WithPriority(10).WithEntry(func(th *ksched.Thread) {
		_, err := ev.Recv(th, 0b1, EventFlagAND, 15*time.Millisecond)
		out <- err
	}).Build()
	sched.Spawn(waiter)

	select {
	case err := <-out:
		assert.ErrorIs(t, err, ErrTimeout)
	case <-time.After(time.Second):
		t.Fatal("recv never resolved")
	}
}

func TestEvent_SendZeroSetIsInvalid(t *testing.T) {
	sched, svc := newTestEnv(t, 1)
	ev := NewEvent(svc, "evt")
	done := make(chan error, 1)
	th := sched.NewBuilder().WithPriority(10).WithEntry(func(th *ksched.Thread) {
		done <- ev.Send(th, 0)
	}).Build()
	sched.Spawn(th)
	assert.ErrorIs(t, <-done, ErrInvalid)
}

func TestSemaphore_TakeRespectsTimeout(t *testing.T) {
	sched, svc := newTestEnv(t, 1)
	sem := NewSemaphore(svc, "sem", 0, 1)

	out := make(chan error, 1)
	th := sched.NewBuilder().WithPriority(10).WithEntry(func(th *ksched.Thread) {
		out <- sem.Take(th, 15*time.Millisecond)
	}).Build()
	sched.Spawn(th)

	select {
	case err := <-out:
		assert.ErrorIs(t, err, ErrTimeout)
	case <-time.After(time.Second):
		t.Fatal("take never resolved")
	}
}

func TestSemaphore_ReleaseWakesWaiter(t *testing.T) {
	sched, svc := newTestEnv(t, 1)
	sem := NewSemaphore(svc, "sem", 0, 1)

	out := make(chan error, 1)
	waiter := sched.NewBuilder().WithPriority(10).WithEntry(func(th *ksched.Thread) {
		out <- sem.Take(th, time.Second)
	}).Build()
	sched.Spawn(waiter)
	time.Sleep(5 * time.Millisecond)

	releaser := sched.NewBuilder().WithPriority(10).WithEntry(func(th *ksched.Thread) {
		sem.Release(th)
	}).Build()
	sched.Spawn(releaser)

	select {
	case err := <-out:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("take never resolved")
	}
}

func TestMutex_TakeIsExclusive(t *testing.T) {
	sched, _ := newTestEnv(t, 1)
	mu := NewMutex(sched, "mtx")

	var order []string
	done := make(chan struct{}, 2)
	first := sched.NewBuilder().WithPriority(10).WithEntry(func(th *ksched.Thread) {
		mu.Take(th)
		order = append(order, "first-acquired")
		mu.Release(th)
		done <- struct{}{}
	}).Build()
	sched.Spawn(first)
	<-done

	second := sched.NewBuilder().WithPriority(10).WithEntry(func(th *ksched.Thread) {
		mu.Take(th)
		order = append(order, "second-acquired")
		mu.Release(th)
		done <- struct{}{}
	}).Build()
	sched.Spawn(second)
	<-done

	assert.Equal(t, []string{"first-acquired", "second-acquired"}, order)
}

func TestMailbox_SendThenRecv(t *testing.T) {
	port := karch.NewSimPort(1)
	sched := ksched.NewScheduler(port, ksched.WithCores(1))
	go sched.RunCore(0)
	svc := ktimer.NewService(sched, ktimer.WithTickPeriod(time.Millisecond))
	go svc.Run()
	t.Cleanup(svc.Stop)

	mb := NewMailbox(port, svc, "mb", 2)

	out := make(chan uintptr, 1)
	recv := sched.NewBuilder().WithPriority(10).WithEntry(func(th *ksched.Thread) {
		v, err := mb.Recv(th, time.Second)
		require.NoError(t, err)
		out <- v
	}).Build()
	sched.Spawn(recv)
	time.Sleep(5 * time.Millisecond)

	send := sched.NewBuilder().WithPriority(10).WithEntry(func(th *ksched.Thread) {
		require.NoError(t, mb.Send(th, 0xABCD, time.Second))
	}).Build()
	sched.Spawn(send)

	select {
	case v := <-out:
		assert.Equal(t, uintptr(0xABCD), v)
	case <-time.After(time.Second):
		t.Fatal("recv never resolved")
	}
}

func TestMailbox_UrgentFailsWhenFull(t *testing.T) {
	port := karch.NewSimPort(1)
	sched := ksched.NewScheduler(port, ksched.WithCores(1))
	go sched.RunCore(0)
	svc := ktimer.NewService(sched, ktimer.WithTickPeriod(time.Millisecond))
	go svc.Run()
	t.Cleanup(svc.Stop)

	mb := NewMailbox(port, svc, "mb", 1)

	done := make(chan struct{})
	th := sched.NewBuilder().WithPriority(10).WithEntry(func(th *ksched.Thread) {
		require.NoError(t, mb.Send(th, 1, time.Second))
		assert.ErrorIs(t, mb.Urgent(th, 2), ErrFull)
		close(done)
	}).Build()
	sched.Spawn(th)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("test never completed")
	}
}
