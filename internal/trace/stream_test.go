package trace

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 9, 14, 5, 7, 123456000, time.Local)
}

func TestTraceDisabledWritesNothing(t *testing.T) {
	for _, level := range []Level{LevelOff, -1, -100} {
		var buf bytes.Buffer
		tr := NewStreamTracer(&buf, level, func() int { return 3 })
		tr.Trace("main.go:1", "chs(%d)", 1)
		tr.Trace("", "plain")
		tr.Trace("", "%s %d %v", "a", 2, nil)
		if buf.Len() != 0 {
			t.Fatalf("level %d: expected no output, got %q", level, buf.String())
		}
		if tr.Enabled() {
			t.Fatalf("level %d: Enabled() = true", level)
		}
	}
}

func TestTraceLineFormat(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelOn, func() int { return 3 })
	tr.SetClock(fixedClock)

	tr.Trace("main.go:42", "chs(<%d>)", 1)
	want := "==> 14:05:07.123456 {3}      chs(<1>) at main.go:42\n"
	if got := buf.String(); got != want {
		t.Fatalf("trace line mismatch:\nwant %q\ngot  %q", want, got)
	}

	buf.Reset()
	tr.Trace("", "go()")
	want = "==> 14:05:07.123456 {3}      go()\n"
	if got := buf.String(); got != want {
		t.Fatalf("trace line without location mismatch:\nwant %q\ngot  %q", want, got)
	}
}

func TestTraceOneLinePerCall(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, 7, func() int { return 12 })
	line := regexp.MustCompile(`^==> \d{2}:\d{2}:\d{2}\.\d{6} \{12\}     msg #\d+\n$`)
	for i := 0; i < 5; i++ {
		buf.Reset()
		tr.Trace("", "msg #%d", i)
		if !line.MatchString(buf.String()) {
			t.Fatalf("unexpected line %q", buf.String())
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Fatalf("expected exactly one newline, got %q", buf.String())
		}
	}
}

func TestTraceSetLevelToggles(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelOff, nil)
	tr.Trace("", "hidden")
	tr.SetLevel(LevelOn)
	tr.Trace("", "shown")
	tr.SetLevel(LevelOff)
	tr.Trace("", "hidden again")
	if got := strings.Count(buf.String(), "\n"); got != 1 {
		t.Fatalf("expected one line, got %d: %q", got, buf.String())
	}
	if !strings.Contains(buf.String(), "{0}") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("stream closed") }

func TestTraceIgnoresWriteErrors(t *testing.T) {
	tr := NewStreamTracer(failingWriter{}, LevelOn, nil)
	tr.Trace("x.go:1", "still fine")
}

type flushRecorder struct {
	bytes.Buffer
	flushes int
}

func (f *flushRecorder) Flush() error {
	f.flushes++
	return nil
}

func TestTraceFlushesAfterEachLine(t *testing.T) {
	rec := &flushRecorder{}
	tr := NewStreamTracer(rec, LevelOn, nil)
	tr.Trace("", "one")
	tr.Trace("", "two")
	if rec.flushes != 2 {
		t.Fatalf("flushes = %d, want 2", rec.flushes)
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		input string
		want  Level
	}{
		{"", LevelOff},
		{"off", LevelOff},
		{"OFF", LevelOff},
		{"on", LevelOn},
		{"0", LevelOff},
		{"3", 3},
		{"-2", -2},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.input)
		if err != nil {
			t.Fatalf("ParseLevel(%q) error: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("ParseLevel(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestLevelContext(t *testing.T) {
	if got := LevelFrom(context.Background()); got != LevelOff {
		t.Fatalf("LevelFrom(empty) = %d, want off", got)
	}
	ctx := WithLevel(context.Background(), 2)
	if got := LevelFrom(ctx); got != 2 {
		t.Fatalf("LevelFrom = %d, want 2", got)
	}
}

func TestNopTracer(t *testing.T) {
	Nop.SetLevel(LevelOn)
	Nop.Trace("", "ignored")
	if Nop.Enabled() {
		t.Fatalf("Nop must never be enabled")
	}
}
