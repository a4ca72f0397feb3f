package ksyncobj

import (
	"testing"
	"time"

	"github.com/blueos-go/kernel/karch"
	"github.com/blueos-go/kernel/ksched"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMailbox_BoundedFIFO reproduces the spec's concrete scenario:
// capacity 4, producer sends 1..5 (the fifth blocks until the consumer
// makes room), consumer receives 1..5 in order.
func TestMailbox_BoundedFIFO(t *testing.T) {
	sched, svc := newTestEnv(t, 1)
	port := karch.NewSimPort(1)
	mb := NewMailbox[int](port, 4)

	sendDone := make(chan struct{})
	producer := sched.NewBuilder().WithPriority(50).WithEntry(func(th *ksched.Thread) {
		for i := 1; i <= 5; i++ {
			if !mb.SendWait(svc, th, i, time.Second) {
				panic("send timed out unexpectedly")
			}
		}
		close(sendDone)
	}).Build()
	sched.Spawn(producer)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 4, mb.Len(producer))

	received := make(chan []int, 1)
	consumer := sched.NewBuilder().WithPriority(50).WithEntry(func(th *ksched.Thread) {
		var out []int
		for i := 0; i < 5; i++ {
			v, ok := mb.Receive(svc, th, time.Second)
			if !ok {
				panic("receive timed out unexpectedly")
			}
			out = append(out, v)
		}
		received <- out
	}).Build()
	sched.Spawn(consumer)

	select {
	case out := <-received:
		assert.Equal(t, []int{1, 2, 3, 4, 5}, out)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer never drained all five messages")
	}
	<-sendDone
}

// TestMailbox_UrgentPushesToHead proves urgent(value) is received before
// older, already-queued entries — it lands at the head, not the tail.
func TestMailbox_UrgentPushesToHead(t *testing.T) {
	sched, svc := newTestEnv(t, 1)
	port := karch.NewSimPort(1)
	mb := NewMailbox[string](port, 3)

	owner := sched.NewBuilder().WithPriority(10).WithEntry(func(th *ksched.Thread) {}).Build()
	sched.Spawn(owner)
	time.Sleep(5 * time.Millisecond)

	require.True(t, mb.SendWait(svc, owner, "a", time.Second))
	require.True(t, mb.SendWait(svc, owner, "b", time.Second))
	mb.Urgent(owner, "urgent")
	assert.Equal(t, 3, mb.Len(owner))

	v, ok := mb.Receive(svc, owner, time.Second)
	require.True(t, ok)
	assert.Equal(t, "urgent", v)

	v, ok = mb.Receive(svc, owner, time.Second)
	require.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = mb.Receive(svc, owner, time.Second)
	require.True(t, ok)
	assert.Equal(t, "b", v)
}

// TestMailbox_UrgentWakesBlockedReceiver proves a thread parked in
// Receive on an empty mailbox is woken by Urgent exactly as it would be
// by SendWait, not left hanging.
func TestMailbox_UrgentWakesBlockedReceiver(t *testing.T) {
	sched, svc := newTestEnv(t, 1)
	port := karch.NewSimPort(1)
	mb := NewMailbox[string](port, 2)

	out := make(chan string, 1)
	receiver := sched.NewBuilder().WithPriority(10).WithEntry(func(th *ksched.Thread) {
		v, ok := mb.Receive(svc, th, time.Second)
		if !ok {
			panic("receive timed out unexpectedly")
		}
		out <- v
	}).Build()
	sched.Spawn(receiver)
	time.Sleep(10 * time.Millisecond)

	sender := sched.NewBuilder().WithPriority(10).WithEntry(func(th *ksched.Thread) {
		mb.Urgent(th, "urgent")
	}).Build()
	sched.Spawn(sender)

	select {
	case v := <-out:
		assert.Equal(t, "urgent", v)
	case <-time.After(time.Second):
		t.Fatal("urgent never woke the blocked receiver")
	}
}

func TestMailbox_UrgentPanicsWhenFull(t *testing.T) {
	sched, svc := newTestEnv(t, 1)
	port := karch.NewSimPort(1)
	mb := NewMailbox[int](port, 1)

	owner := sched.NewBuilder().WithPriority(10).WithEntry(func(th *ksched.Thread) {}).Build()
	sched.Spawn(owner)
	time.Sleep(5 * time.Millisecond)

	require.True(t, mb.SendWait(svc, owner, 1, time.Second))
	assert.Panics(t, func() { mb.Urgent(owner, 2) })
}
