package cmsis

import (
	"testing"
	"time"

	"github.com/blueos-go/kernel/karch"
	"github.com/blueos-go/kernel/kmem"
	"github.com/blueos-go/kernel/ksched"
	"github.com/blueos-go/kernel/ktimer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnv(t *testing.T, cores int) (*ksched.Scheduler, *ktimer.Service, *kmem.Heap) {
	t.Helper()
	port := karch.NewSimPort(cores)
	sched := ksched.NewScheduler(port, ksched.WithCores(cores))
	for c := 0; c < cores; c++ {
		go sched.RunCore(c)
	}
	svc := ktimer.NewService(sched, ktimer.WithTickPeriod(time.Millisecond))
	go svc.Run()
	t.Cleanup(svc.Stop)
	return sched, svc, kmem.NewHeap()
}

func TestMemoryPool_AllocExhaustsThenFreeReplenishes(t *testing.T) {
	sched, svc, heap := newTestEnv(t, 1)
	pool, err := NewMemoryPool(heap, svc, "pool", 2, 64)
	require.NoError(t, err)

	done := make(chan struct{})
	th := sched.NewBuilder().WithPriority(10).WithEntry(func(th *ksched.Thread) {
		b1, err := pool.Alloc(th, 0)
		require.NoError(t, err)
		b2, err := pool.Alloc(th, 0)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), pool.FreeCount())

		_, err = pool.Alloc(th, 0)
		assert.ErrorIs(t, err, ErrResource)

		pool.Free(th, b1)
		assert.Equal(t, uint32(1), pool.FreeCount())

		b3, err := pool.Alloc(th, 0)
		require.NoError(t, err)
		pool.Free(th, b2)
		pool.Free(th, b3)
		close(done)
	}).Build()
	sched.Spawn(th)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("test never completed")
	}
}

func TestMemoryPool_AllocBlocksUntilFreed(t *testing.T) {
	sched, svc, heap := newTestEnv(t, 1)
	pool, err := NewMemoryPool(heap, svc, "pool", 1, 32)
	require.NoError(t, err)

	var first *kmem.Block
	out := make(chan error, 1)
	waiter := sched.NewBuilder().WithPriority(10).WithEntry(func(th *ksched.Thread) {
		blk, err := pool.Alloc(th, 0)
		require.NoError(t, err)
		first = blk

		_, err = pool.Alloc(th, time.Second)
		out <- err
	}).Build()
	sched.Spawn(waiter)
	time.Sleep(5 * time.Millisecond)

	releaser := sched.NewBuilder().WithPriority(10).WithEntry(func(th *ksched.Thread) {
		pool.Free(th, first)
	}).Build()
	sched.Spawn(releaser)

	select {
	case err := <-out:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("alloc never resolved")
	}
}

func TestMemoryPool_RejectsInvalidParameters(t *testing.T) {
	_, svc, heap := newTestEnv(t, 1)
	_, err := NewMemoryPool(heap, svc, "pool", 0, 32)
	assert.ErrorIs(t, err, ErrParameter)
	_, err = NewMemoryPool(heap, svc, "pool", 1, 0)
	assert.ErrorIs(t, err, ErrParameter)
}
