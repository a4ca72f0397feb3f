// Package klog is the kernel's structured-logging seam: a package-level
// logger, set once at boot and read by every other package, mirroring the
// SetStructuredLogger/getGlobalLogger convention. Unlike a hand-rolled
// LogEntry/Logger interface, the concrete logger is a logiface.Logger
// backed by stumpy's low-allocation JSON encoder — logiface gives every
// call site the same chained Str/Int/Err builder regardless of which
// backend (stumpy here; zerolog, logrus, slog elsewhere in the ecosystem)
// ends up consuming it.
package klog

import (
	"os"
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the concrete logger type every kernel package logs through.
type Logger = logiface.Logger[*stumpy.Event]

var global struct {
	sync.RWMutex
	logger *Logger
}

func init() {
	global.logger = newDefault()
}

func newDefault() *Logger {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(os.Stderr)),
	)
}

// SetLogger replaces the package-level logger. Intended to be called once
// during boot, before any thread runs; kboot.Start does not call it.
func SetLogger(l *Logger) {
	global.Lock()
	defer global.Unlock()
	global.logger = l
}

// L returns the current package-level logger.
func L() *Logger {
	global.RLock()
	defer global.RUnlock()
	return global.logger
}
