package trace

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// timestampLayout renders local wall-clock time with microsecond precision.
const timestampLayout = "15:04:05.000000"

// StreamTracer writes trace lines immediately to an io.Writer.
type StreamTracer struct {
	w       io.Writer
	level   Level
	current func() int
	now     func() time.Time
}

// NewStreamTracer creates a new StreamTracer. current reports the id of the
// coroutine that is executing when a line is written.
func NewStreamTracer(w io.Writer, level Level, current func() int) *StreamTracer {
	return &StreamTracer{
		w:       w,
		level:   level,
		current: current,
		now:     time.Now,
	}
}

// SetClock replaces the wall-clock source used for timestamps.
func (t *StreamTracer) SetClock(now func() time.Time) {
	if t == nil || now == nil {
		return
	}
	t.now = now
}

// Trace formats and writes a single line, then flushes the writer if it
// buffers. It is a no-op while the level is disabled.
func (t *StreamTracer) Trace(location, format string, args ...any) {
	if t == nil || !t.level.Enabled() || t.w == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString("==> ")
	sb.WriteString(t.now().Format(timestampLayout))
	sb.WriteByte(' ')

	id := 0
	if t.current != nil {
		id = t.current()
	}
	fmt.Fprintf(&sb, "%-8s ", "{"+strconv.Itoa(id)+"}")
	fmt.Fprintf(&sb, format, args...)
	if location != "" {
		sb.WriteString(" at ")
		sb.WriteString(location)
	}
	sb.WriteByte('\n')

	// Best-effort write - tracing must never disturb the traced program
	_, _ = io.WriteString(t.w, sb.String()) //nolint:errcheck
	t.flush()
}

func (t *StreamTracer) flush() {
	if flusher, ok := t.w.(interface{ Flush() error }); ok {
		_ = flusher.Flush() //nolint:errcheck
	}
}

// SetLevel changes the tracing level.
func (t *StreamTracer) SetLevel(level Level) {
	if t == nil {
		return
	}
	t.level = level
}

// Level returns the current tracing level.
func (t *StreamTracer) Level() Level {
	if t == nil {
		return LevelOff
	}
	return t.level
}

// Enabled returns true if tracing is active.
func (t *StreamTracer) Enabled() bool {
	return t.Level().Enabled()
}
