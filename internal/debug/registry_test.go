package debug

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"testing"
)

func TestRegisterAssignsSequentialIDs(t *testing.T) {
	r := newTestRegistry(&bytes.Buffer{})
	const n = 6
	for i := 1; i <= n; i++ {
		if got := r.RegisterCoroutine(fmt.Sprintf("a.go:%d", i)); got != CoroutineID(i) {
			t.Fatalf("registration %d got id %d", i, got)
		}
	}
	want := []CoroutineID{MainCoroutine, 1, 2, 3, 4, 5, 6}
	if got := r.Coroutines(); !slices.Equal(got, want) {
		t.Fatalf("Coroutines() = %v, want %v", got, want)
	}

	out := dumpString(r)
	last := -1
	for i := 1; i <= n; i++ {
		pos := strings.Index(out, fmt.Sprintf("{%d} ", i))
		if pos < 0 || pos < last {
			t.Fatalf("coroutine %d out of order in dump:\n%s", i, out)
		}
		last = pos
	}
}

func TestUnregisterCoroutineKeepsOthers(t *testing.T) {
	r := newTestRegistry(&bytes.Buffer{})
	for i := 0; i < 4; i++ {
		r.RegisterCoroutine("a.go:1")
	}
	r.UnregisterCoroutine(2)
	want := []CoroutineID{MainCoroutine, 1, 3, 4}
	if got := r.Coroutines(); !slices.Equal(got, want) {
		t.Fatalf("Coroutines() = %v, want %v", got, want)
	}
	if strings.Contains(dumpString(r), "{2} ") {
		t.Fatalf("unregistered coroutine still dumped")
	}
	if got := r.RegisterCoroutine("a.go:2"); got != 5 {
		t.Fatalf("ids must not be reused, got %d", got)
	}

	r.UnregisterCoroutine(4)
	r.UnregisterCoroutine(1)
	r.UnregisterCoroutine(99)
	want = []CoroutineID{MainCoroutine, 3, 5}
	if got := r.Coroutines(); !slices.Equal(got, want) {
		t.Fatalf("Coroutines() = %v, want %v", got, want)
	}
}

func TestMainCoroutineIsPermanent(t *testing.T) {
	r := newTestRegistry(&bytes.Buffer{})
	r.UnregisterCoroutine(MainCoroutine)
	if got := r.Coroutines(); !slices.Equal(got, []CoroutineID{MainCoroutine}) {
		t.Fatalf("main coroutine removed: %v", got)
	}
	if r.Created(MainCoroutine) != "" {
		t.Fatalf("main coroutine must have no creation site")
	}
}

func TestIndependentCounters(t *testing.T) {
	r := newTestRegistry(&bytes.Buffer{})
	if ch := r.RegisterChannel("a.go:1"); ch != 1 {
		t.Fatalf("first channel id = %d, want 1", ch)
	}
	if cr := r.RegisterCoroutine("a.go:2"); cr != 1 {
		t.Fatalf("first coroutine id = %d, want 1", cr)
	}
	if ch := r.RegisterChannel("a.go:3"); ch != 2 {
		t.Fatalf("second channel id = %d, want 2", ch)
	}
	r.UnregisterChannel(1)
	if got := r.Channels(); !slices.Equal(got, []ChannelID{2}) {
		t.Fatalf("Channels() = %v", got)
	}
	if r.Channel(1) != nil {
		t.Fatalf("unregistered channel still reachable")
	}
}

func TestSetCurrentOverwritesLabel(t *testing.T) {
	r := newTestRegistry(&bytes.Buffer{})
	id := r.RegisterCoroutine("a.go:1")
	if r.Label(id) != "" {
		t.Fatalf("label must start empty")
	}
	r.SetCurrent(id, "a.go:5")
	r.SetCurrent(id, "a.go:6")
	if got := r.Label(id); got != "a.go:6" {
		t.Fatalf("Label = %q", got)
	}
	r.SetRunning(id)
	r.SetCurrent(id, "a.go:7")
	if got := r.Label(id); got != "a.go:7" {
		t.Fatalf("label of the running coroutine not updated: %q", got)
	}
}

// checkClauseInvariant verifies that every clause on a channel list belongs
// to exactly one coroutine's clause set and vice versa.
func checkClauseInvariant(t *testing.T, r *Registry) {
	t.Helper()
	onChannels := make(map[ClauseID]int)
	for _, chID := range r.Channels() {
		ch := r.Channel(chID)
		for _, dir := range []Dir{DirSend, DirRecv} {
			for id := range ch.waitlist(dir).all(r.clauseLinks) {
				onChannels[id]++
				if cl := r.clauses[id]; cl.ch != chID || cl.dir != dir {
					t.Fatalf("clause %d on wrong list", id)
				}
			}
		}
	}
	owned := make(map[ClauseID]int)
	for _, crID := range r.Coroutines() {
		for _, id := range r.crs[crID].clauses {
			owned[id]++
		}
	}
	if len(onChannels) != len(owned) || len(owned) != len(r.clauses) {
		t.Fatalf("clause sets differ: channels=%v owned=%v arena=%d", onChannels, owned, len(r.clauses))
	}
	for id, n := range onChannels {
		if n != 1 || owned[id] != 1 {
			t.Fatalf("clause %d: on %d lists, owned %d times", id, n, owned[id])
		}
	}
}

func TestClauseMembershipInvariant(t *testing.T) {
	r := newTestRegistry(&bytes.Buffer{})
	a := r.RegisterChannel("a.go:1")
	b := r.RegisterChannel("a.go:2")
	x := r.RegisterCoroutine("a.go:3")
	y := r.RegisterCoroutine("a.go:4")

	r.SetOp(x, Choose{Clauses: []Clause{{Dir: DirSend, Chan: a}, {Dir: DirRecv, Chan: b}, {Dir: DirRecv, Chan: a}}})
	r.SetOp(y, Recv{Clauses: []Clause{{Dir: DirRecv, Chan: a}}})
	checkClauseInvariant(t, r)
	if got := r.WaitCount(a, DirRecv); got != 2 {
		t.Fatalf("receivers on a = %d, want 2", got)
	}

	r.SetOp(x, Sleep{})
	checkClauseInvariant(t, r)
	if got := r.WaitCount(a, DirSend); got != 0 {
		t.Fatalf("senders on a = %d after replacing op", got)
	}
	w, ok := r.FirstWaiter(a, DirRecv)
	if !ok || w.Coroutine != y || w.Index != 0 {
		t.Fatalf("FirstWaiter = %+v, %v", w, ok)
	}

	r.SetOp(x, Send{Clauses: []Clause{{Dir: DirSend, Chan: b}}})
	r.UnregisterCoroutine(y)
	checkClauseInvariant(t, r)
	if r.WaitCount(a, DirRecv) != 0 {
		t.Fatalf("unregistered coroutine still queued")
	}
	r.UnregisterCoroutine(x)
	checkClauseInvariant(t, r)
	if len(r.clauses) != 0 {
		t.Fatalf("clause arena not empty: %d", len(r.clauses))
	}
}

func TestWaitersReportClauseIndex(t *testing.T) {
	r := newTestRegistry(&bytes.Buffer{})
	a := r.RegisterChannel("a.go:1")
	b := r.RegisterChannel("a.go:2")
	x := r.RegisterCoroutine("a.go:3")
	y := r.RegisterCoroutine("a.go:4")
	r.SetOp(x, Choose{Clauses: []Clause{{Dir: DirRecv, Chan: b}, {Dir: DirSend, Chan: a}}})
	r.SetOp(y, Send{Clauses: []Clause{{Dir: DirSend, Chan: a}}})

	got := r.Waiters(a, DirSend)
	if len(got) != 2 {
		t.Fatalf("Waiters = %+v", got)
	}
	if got[0].Coroutine != x || got[0].Index != 1 {
		t.Fatalf("first sender = %+v, want coroutine %d index 1", got[0], x)
	}
	if got[1].Coroutine != y || got[1].Index != 0 {
		t.Fatalf("second sender = %+v, want coroutine %d index 0", got[1], y)
	}
}

func TestSetOpCopiesClauses(t *testing.T) {
	r := newTestRegistry(&bytes.Buffer{})
	a := r.RegisterChannel("a.go:1")
	b := r.RegisterChannel("a.go:2")
	x := r.RegisterCoroutine("a.go:3")
	clauses := []Clause{{Dir: DirSend, Chan: a}}
	r.SetOp(x, Send{Clauses: clauses})
	clauses[0].Chan = b
	if got := stateOf(t, dumpString(r), x); got != "chs(S<1>)" {
		t.Fatalf("state = %q after caller mutation", got)
	}
}

func TestRegistryTrace(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRegistry(&buf)
	id := r.RegisterCoroutine("a.go:1")
	r.Trace("a.go:2", "hidden")
	if buf.Len() != 0 {
		t.Fatalf("trace disabled by default, got %q", buf.String())
	}
	r.SetTraceLevel(1)
	r.SetRunning(id)
	r.Trace("a.go:2", "msleep(%d)", 10)
	line := buf.String()
	if !strings.Contains(line, "{1}      msleep(10) at a.go:2\n") {
		t.Fatalf("unexpected trace line %q", line)
	}
}

func TestNilRegistryIsInert(t *testing.T) {
	var r *Registry
	r.SetOp(1, Sleep{})
	r.SetCurrent(1, "x")
	r.UnregisterCoroutine(1)
	r.UnregisterChannel(1)
	r.Dump()
	r.Trace("", "x")
	if r.Coroutines() != nil || r.Channels() != nil {
		t.Fatalf("nil registry must report nothing")
	}
}
