package karch

import (
	"time"

	"github.com/blueos-go/kernel/klog"
	"github.com/joeycumines/go-catrate"
)

// hardFaultLimiter throttles HardFault dumps to at most 5 in any 1-second
// window and 20 in any minute, so a faulting loop (the same thread
// repeatedly re-entering a fault handler) cannot itself wedge the system
// by flooding the log sink.
var hardFaultLimiter = catrate.NewLimiter(map[time.Duration]int{
	time.Second: 5,
	time.Minute: 20,
})

// DumpHardFault logs a best-effort snapshot of the faulting context: the
// core that faulted, the thread running on it (if any), and a cause
// string a real port would derive from CFSR/HFSR. Unlike a bare-metal
// HardFault handler, which must run in minimal, allocation-free interrupt
// context, simport's equivalent runs on an ordinary goroutine, so it is
// free to use the structured logger directly.
func DumpHardFault(core int, threadID uint64, cause string) {
	if _, allowed := hardFaultLimiter.Allow(core); !allowed {
		return
	}
	klog.L().Err().
		Int("core", core).
		Uint64("thread_id", threadID).
		Str("cause", cause).
		Log("hard fault")
}
