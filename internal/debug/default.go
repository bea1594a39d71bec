package debug

import (
	"sync"
	"sync/atomic"

	"corodebug/internal/trace"
)

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry. It writes to os.Stderr.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = New(Config{})
	})
	return defaultRegistry
}

// Goredump dumps the process-wide registry to stderr.
func Goredump() {
	Default().Dump()
}

// Gotrace sets the trace level of the process-wide registry. 0 disables
// tracing, any positive value enables it.
func Gotrace(level int) {
	Default().SetTraceLevel(trace.Level(level))
}

// Panic reports a fatal error on the process-wide registry's stream and
// terminates the process.
func Panic(msg string) {
	Default().Panic(msg)
}

// unoptimisable is always true once the package is initialised; the
// compiler cannot prove it.
var unoptimisable atomic.Bool

func init() {
	unoptimisable.Store(true)
}

// PreserveDebug keeps Goredump and Gotrace linked into binaries that never
// call them, so they stay callable from a debugger. It has no effect.
func PreserveDebug() {
	if unoptimisable.Load() {
		return
	}
	Goredump()
	Gotrace(0)
}
