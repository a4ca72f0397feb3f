package ksyncobj

import (
	"testing"
	"time"

	"github.com/blueos-go/kernel/ksched"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFlags_WaitAnySatisfiedImmediately(t *testing.T) {
	sched, svc := newTestEnv(t, 1)
	ef := NewEventFlags()
	setter := sched.NewBuilder().WithPriority(10).WithEntry(func(t *ksched.Thread) {
		ef.Set(t, 0b0100)
	}).Build()
	sched.Spawn(setter)
	time.Sleep(5 * time.Millisecond)

	type result struct {
		bits uint32
		ok   bool
	}
	out := make(chan result, 1)
	waiter := sched.NewBuilder().WithPriority(10).WithEntry(func(t *ksched.Thread) {
		bits, ok := ef.Wait(svc, t, 0b0101, WaitAny, false, time.Second)
		out <- result{bits, ok}
	}).Build()
	sched.Spawn(waiter)

	select {
	case r := <-out:
		require.True(t, r.ok)
		assert.Equal(t, uint32(0b0100), r.bits)
	case <-time.After(time.Second):
		t.Fatal("wait never resolved")
	}
}

func TestEventFlags_WaitAllBlocksUntilEverySet(t *testing.T) {
	sched, svc := newTestEnv(t, 1)
	ef := NewEventFlags()

	result := make(chan uint32, 1)
	waiter := sched.NewBuilder().WithPriority(50).WithEntry(func(t *ksched.Thread) {
		bits, ok := ef.Wait(svc, t, 0b011, WaitAll, true, time.Second)
		require.True(t, ok)
		result <- bits
	}).Build()
	sched.Spawn(waiter)
	time.Sleep(10 * time.Millisecond)

	setter1 := sched.NewBuilder().WithPriority(10).WithEntry(func(t *ksched.Thread) {
		ef.Set(t, 0b001)
	}).Build()
	sched.Spawn(setter1)
	time.Sleep(10 * time.Millisecond)

	select {
	case <-result:
		t.Fatal("waiter woke before both bits were set")
	default:
	}

	setter2 := sched.NewBuilder().WithPriority(10).WithEntry(func(t *ksched.Thread) {
		ef.Set(t, 0b010)
	}).Build()
	sched.Spawn(setter2)

	select {
	case bits := <-result:
		assert.Equal(t, uint32(0b011), bits)
	case <-time.After(time.Second):
		t.Fatal("waiter never woke after both bits set")
	}
}

func TestEventFlags_TimedWaitExpires(t *testing.T) {
	sched, svc := newTestEnv(t, 1)
	ef := NewEventFlags()

	out := make(chan bool, 1)
	waiter := sched.NewBuilder().WithPriority(50).WithEntry(func(t *ksched.Thread) {
		_, ok := ef.Wait(svc, t, 0xFF, WaitAny, false, 15*time.Millisecond)
		out <- ok
	}).Build()
	sched.Spawn(waiter)

	select {
	case ok := <-out:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("wait never resolved")
	}
}
