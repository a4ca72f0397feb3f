package ksync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitQueue_FIFOOrder(t *testing.T) {
	q := NewWaitQueue[int](FIFO, nil)
	q.PushBack(1)
	q.PushBack(2)
	q.PushBack(3)

	v, ok := q.PopFront()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = q.PopFront()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	assert.Equal(t, 1, q.Len())
}

func TestWaitQueue_PriorityOrder(t *testing.T) {
	// Lower numeric value == higher priority, mirroring the kernel's
	// priority convention (smaller number wakes first).
	less := func(a, b int) bool { return a < b }
	q := NewWaitQueue[int](PriorityOrder, less)

	q.PushBack(5)
	q.PushBack(3)
	q.PushBack(7)
	q.PushBack(3)

	var order []int
	for {
		v, ok := q.PopFront()
		if !ok {
			break
		}
		order = append(order, v)
	}
	assert.Equal(t, []int{3, 3, 5, 7}, order)
}

func TestWaitQueue_RemoveRacesTimeout(t *testing.T) {
	q := NewWaitQueue[string](FIFO, nil)
	e := q.PushBack("waiter")
	assert.Equal(t, 1, q.Len())

	assert.True(t, q.Remove(e))
	assert.Equal(t, 0, q.Len())
	// A second Remove (the "timeout callback loses the race") is a
	// harmless no-op.
	assert.False(t, q.Remove(e))
}

func TestWaitQueue_EmptyPopFront(t *testing.T) {
	q := NewWaitQueue[int](FIFO, nil)
	_, ok := q.PopFront()
	assert.False(t, ok)
}
