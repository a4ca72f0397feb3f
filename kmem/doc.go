// Package kmem implements the kernel's heap: a routing front-end over slab
// banks (fixed block sizes 64..4096), a buddy allocator for larger or
// alignment-exceeding requests, and an alternative linked-list-of-holes
// allocator selectable at construction time. All three carve blocks out of
// a single contiguous arena rather than delegating to the Go runtime's own
// allocator, so that capacity, fragmentation, and exhaustion behave the way
// the spec's memory-pool-exhaustion scenario expects: deterministic and
// bounded by arena size, not by process memory.
//
// Free-list linkage, which the original implementation embeds as raw
// pointers inside each free block, is represented here as byte offsets
// into the arena slice, read and written with encoding/binary. An offset
// is not a Go pointer: it carries no GC obligations and cannot dangle
// independently of the arena it indexes, which is what lets Alloc/Free
// touch raw bytes without recourse to package unsafe.
package kmem
