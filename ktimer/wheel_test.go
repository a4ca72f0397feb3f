package ktimer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWheel_FiresAtExactTick(t *testing.T) {
	w := NewWheel()
	timer := &Timer{deadline: 5}
	w.Add(timer)

	for i := 0; i < 4; i++ {
		fired := w.Advance()
		assert.Empty(t, fired)
	}
	fired := w.Advance()
	require.Len(t, fired, 1)
	assert.Same(t, timer, fired[0])
}

func TestWheel_PeriodicReArmsBeforeFiring(t *testing.T) {
	w := NewWheel()
	timer := &Timer{deadline: 3, period: 3}
	w.Add(timer)

	var fireTicks []uint64
	for i := 0; i < 10; i++ {
		for _, f := range w.Advance() {
			fireTicks = append(fireTicks, w.CurrentTick())
			_ = f
		}
	}
	assert.Equal(t, []uint64{3, 6, 9}, fireTicks)
}

func TestWheel_CancelBeforeFireSkipsIt(t *testing.T) {
	w := NewWheel()
	timer := &Timer{deadline: 2}
	w.Add(timer)
	w.Cancel(timer)

	for i := 0; i < 5; i++ {
		assert.Empty(t, w.Advance())
	}
}

func TestWheel_OverflowTimerMigratesIntoBucket(t *testing.T) {
	w := NewWheel()
	// Deadline far beyond bucketCount: must go through the overflow heap
	// and later migrate into a bucket as the wheel catches up.
	timer := &Timer{deadline: bucketCount + 10}
	w.Add(timer)
	require.Equal(t, 1, w.overflow.Len())

	var fired []*Timer
	for i := 0; i < bucketCount+10; i++ {
		fired = append(fired, w.Advance()...)
	}
	require.Len(t, fired, 1)
	assert.Same(t, timer, fired[0])
}

func TestWheel_CancelInOverflowRemovesImmediately(t *testing.T) {
	w := NewWheel()
	timer := &Timer{deadline: bucketCount + 50}
	w.Add(timer)
	w.Cancel(timer)
	assert.Equal(t, 0, w.overflow.Len())
}
