package asyncrt

import (
	"math"
	"strings"
	"time"

	"fortio.org/safecast"
)

// TimerMode selects the clock behind msleep.
type TimerMode uint8

const (
	// TimerModeVirtual jumps straight to the next deadline once every
	// coroutine is blocked, so sleeping scenarios finish instantly and
	// wake in a reproducible order.
	TimerModeVirtual TimerMode = iota
	// TimerModeReal sleeps the scheduler for as long as the deadline says.
	TimerModeReal
)

// String returns the name used by --clock and the config file.
func (m TimerMode) String() string {
	if m == TimerModeReal {
		return "real"
	}
	return "virtual"
}

// ParseTimerMode reads a --clock value. The empty string means virtual.
func ParseTimerMode(s string) (TimerMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "virtual":
		return TimerModeVirtual, true
	case "real":
		return TimerModeReal, true
	default:
		return TimerModeVirtual, false
	}
}

// Clock is consulted by the scheduler when nothing is ready: it reports the
// executor's time in milliseconds and waits for the earliest sleeper.
type Clock interface {
	NowMs() uint64
	SleepUntilMs(deadlineMs uint64)
}

// VirtualClock is the executor's own millisecond counter. Waiting only
// moves the counter forward.
type VirtualClock struct {
	ex *Executor
}

func (c *VirtualClock) NowMs() uint64 {
	if c == nil || c.ex == nil {
		return 0
	}
	return c.ex.nowMs
}

func (c *VirtualClock) SleepUntilMs(deadlineMs uint64) {
	if c == nil || c.ex == nil {
		return
	}
	c.ex.nowMs = max(c.ex.nowMs, deadlineMs)
}

// RealClock measures milliseconds since the executor started and blocks
// the scheduler goroutine until a deadline passes.
type RealClock struct {
	NowFunc func() uint64
}

func (c *RealClock) NowMs() uint64 {
	if c == nil || c.NowFunc == nil {
		return 0
	}
	return c.NowFunc()
}

func (c *RealClock) SleepUntilMs(deadlineMs uint64) {
	if c == nil {
		return
	}
	now := c.NowMs()
	if deadlineMs <= now {
		return
	}
	delta := min(deadlineMs-now, uint64(math.MaxInt64/int64(time.Millisecond)))
	delay, err := safecast.Conv[int64](delta)
	if err != nil {
		return
	}
	time.Sleep(time.Duration(delay) * time.Millisecond)
}
