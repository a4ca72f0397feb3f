// Package ksync implements the spinlock and wait-queue substrate (spec
// §4.2): the two primitives every higher-level synchronization object and
// the scheduler itself are built from. It is deliberately leaf-level —
// WaitQueue is generic over its element type rather than naming
// ksched.Thread directly — so that ksched can depend on ksync without
// ksync ever depending back on ksched. The user-facing objects built atop
// a scheduler-aware wait queue (Mutex, Semaphore, EventFlags, Mailbox,
// Futex) live in package ksyncobj.
package ksync
