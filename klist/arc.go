package klist

import "sync/atomic"

// Arc is a strong-count reference-counted pointer to a value of type T.
// It is the kernel's equivalent of Rust's Arc: the wrapped value is freed
// (by invoking release, if non-nil) when the last strong reference drops.
type Arc[T any] struct {
	value   *T
	count   *atomic.Int64
	release func(*T)
}

// NewArc wraps value in a new Arc with an initial strong count of 1. release
// is invoked, at most once, when the count reaches zero; it may be nil.
func NewArc[T any](value *T, release func(*T)) Arc[T] {
	count := new(atomic.Int64)
	count.Store(1)
	return Arc[T]{value: value, count: count, release: release}
}

// Get returns the wrapped pointer. It remains valid only while the caller
// holds a strong reference (this Arc, or a clone of it, not yet dropped).
func (a Arc[T]) Get() *T {
	return a.value
}

// Clone increments the strong count and returns a new handle to the same
// value.
func (a Arc[T]) Clone() Arc[T] {
	a.count.Add(1)
	return a
}

// Drop decrements the strong count, invoking release if it reaches zero.
// Drop must be called exactly once per Arc value obtained from NewArc or
// Clone; calling it more than once is a use-after-free bug, mirroring the
// kernel's "weakly-acyclic ownership" requirement (design notes §9).
func (a Arc[T]) Drop() {
	if a.count.Add(-1) == 0 && a.release != nil {
		a.release(a.value)
	}
}

// StrongCount returns the current strong reference count.
func (a Arc[T]) StrongCount() int64 {
	return a.count.Load()
}

// FromNode materialises an Arc from a node embedded in an already-Arc-owned
// record. The caller is responsible for ensuring the record is indeed
// managed by an equivalent Arc (i.e. that this does not outlive the
// record's last strong reference) — this is the Go analogue of
// make_arc_from(&intrusive_node), recovered via the node's back-pointer
// instead of pointer arithmetic.
func FromNode[T any](n *Node[T], count *atomic.Int64, release func(*T)) Arc[T] {
	count.Add(1)
	return Arc[T]{value: n.Owner(), count: count, release: release}
}

// tinyArcMax is the largest strong count a TinyArc can represent. Exceeding
// it is a bug (Clone panics, per kernel panic-on-inconsistency policy,
// rather than silently wrapping).
const tinyArcMax = 1<<8 - 1

// TinyArc packs the strong count into a single byte, trading a much lower
// maximum reference count for a far smaller footprint — the kernel's
// "Tiny" Arc, sized for 32-bit targets where every embedded refcount costs
// RAM.
type TinyArc[T any] struct {
	value   *T
	count   *atomic.Uint32 // only the low byte is used
	release func(*T)
}

// NewTinyArc wraps value in a new TinyArc with an initial strong count of 1.
func NewTinyArc[T any](value *T, release func(*T)) TinyArc[T] {
	count := new(atomic.Uint32)
	count.Store(1)
	return TinyArc[T]{value: value, count: count, release: release}
}

func (a TinyArc[T]) Get() *T { return a.value }

// Clone increments the strong count. It panics if doing so would exceed
// tinyArcMax, since TinyArc exists specifically to bound the count.
func (a TinyArc[T]) Clone() TinyArc[T] {
	for {
		cur := a.count.Load()
		if cur >= tinyArcMax {
			panic("klist: TinyArc strong count overflow")
		}
		if a.count.CompareAndSwap(cur, cur+1) {
			return a
		}
	}
}

// Drop decrements the strong count, invoking release if it reaches zero.
func (a TinyArc[T]) Drop() {
	if a.count.Add(^uint32(0)) == 0 && a.release != nil {
		a.release(a.value)
	}
}

// StrongCount returns the current strong reference count.
func (a TinyArc[T]) StrongCount() uint32 {
	return a.count.Load()
}
