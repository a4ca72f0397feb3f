// Package klist provides the intrusive list and reference-counting
// primitives used throughout the kernel: a plain doubly-linked list, a
// lock-free doubly-linked list for contexts where node ownership may race
// (e.g. timer cancellation vs. the tick handler), and Arc/TinyArc
// strong-reference-counted pointers.
//
// Go's garbage collector requires every word of a pointer-typed field to be
// a valid pointer at all times, so unlike the original kernel this package
// never tags the low bit of a node pointer to steal a per-node lock. Instead
// [AtomicNode] carries an explicit atomic.Bool alongside its atomic pointer
// fields. The container_of idiom is likewise recovered with an explicit
// back-pointer (see [Node.Owner]) rather than byte-offset pointer
// arithmetic, per the "safe-but-heavier" option the kernel design notes
// call out explicitly.
package klist
