package trace

// nopTracer is a no-op implementation for callers without a runtime.
type nopTracer struct{}

// Trace does nothing.
func (nopTracer) Trace(string, string, ...any) {}

// SetLevel does nothing.
func (nopTracer) SetLevel(Level) {}

// Level returns LevelOff.
func (nopTracer) Level() Level { return LevelOff }

// Enabled always returns false.
func (nopTracer) Enabled() bool { return false }

// Nop is the package-level singleton nop tracer.
var Nop Tracer = nopTracer{}
