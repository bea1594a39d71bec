package trace

// Tracer is the main interface for narrating runtime operations.
type Tracer interface {
	// Trace writes one line when the level is enabled. An empty location
	// omits the " at <location>" suffix.
	Trace(location, format string, args ...any)

	// SetLevel changes the verbosity; values <= 0 disable tracing.
	SetLevel(level Level)

	// Level returns the current tracing level.
	Level() Level

	// Enabled returns true if tracing is active (Level > LevelOff).
	Enabled() bool
}
