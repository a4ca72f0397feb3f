package klist

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArc_ReleaseOnLastDrop(t *testing.T) {
	released := false
	val := 42
	a := NewArc(&val, func(v *int) { released = true })

	b := a.Clone()
	assert.Equal(t, int64(2), a.StrongCount())

	a.Drop()
	assert.False(t, released)
	assert.Equal(t, int64(1), b.StrongCount())

	b.Drop()
	assert.True(t, released)
}

func TestArc_ConcurrentCloneDrop(t *testing.T) {
	released := 0
	val := 7
	root := NewArc(&val, func(v *int) { released++ })

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := root.Clone()
			h.Drop()
		}()
	}
	wg.Wait()
	root.Drop()

	assert.Equal(t, 1, released)
}

func TestTinyArc_OverflowPanics(t *testing.T) {
	val := 1
	a := NewTinyArc(&val, nil)
	for i := 0; i < tinyArcMax-1; i++ {
		a = a.Clone()
	}
	assert.Equal(t, uint32(tinyArcMax), a.StrongCount())

	assert.Panics(t, func() {
		a.Clone()
	})
}

func TestTinyArc_ReleaseOnLastDrop(t *testing.T) {
	released := false
	val := 3
	a := NewTinyArc(&val, func(v *int) { released = true })
	b := a.Clone()
	a.Drop()
	assert.False(t, released)
	b.Drop()
	assert.True(t, released)
}
