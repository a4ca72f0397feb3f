// Package ksyncobj implements the kernel synchronization primitives that,
// unlike ksched.Mutex, never need a back-reference from Thread: Semaphore,
// EventFlags, Mailbox, and Futex. Each wraps a ksync.WaitQueue (of
// *ksched.Thread, or for EventFlags of its own waiter records) and calls
// back into ksched to mark waiters Ready, so this
// package depends on ksched and ktimer but never the reverse.
package ksyncobj
