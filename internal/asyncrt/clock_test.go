package asyncrt

import "testing"

func TestParseTimerMode(t *testing.T) {
	cases := []struct {
		in   string
		want TimerMode
		ok   bool
	}{
		{"", TimerModeVirtual, true},
		{"virtual", TimerModeVirtual, true},
		{"REAL", TimerModeReal, true},
		{" real ", TimerModeReal, true},
		{"wall", TimerModeVirtual, false},
	}
	for _, tc := range cases {
		got, ok := ParseTimerMode(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseTimerMode(%q) = (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestVirtualClockIsMonotone(t *testing.T) {
	e := NewExecutor(Config{})
	c := &VirtualClock{ex: e}
	c.SleepUntilMs(40)
	c.SleepUntilMs(10)
	if now := c.NowMs(); now != 40 {
		t.Fatalf("NowMs = %d, want 40", now)
	}
}

func TestTimerCancel(t *testing.T) {
	e := NewExecutor(Config{})
	id := e.TimerScheduleAfter(1, 5)
	if !e.TimerActive(id) {
		t.Fatalf("timer not active after scheduling")
	}
	e.TimerCancel(id)
	if e.TimerActive(id) {
		t.Fatalf("timer active after cancel")
	}
	if _, ok := e.nextDeadline(); ok {
		t.Fatalf("cancelled timer still reported as deadline")
	}
}
