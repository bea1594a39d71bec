// Package scenario holds small coroutine programs that exercise the runtime
// and its introspection layer, and a runner that executes them side by side.
package scenario

import (
	"context"
	"slices"

	"corodebug/internal/asyncrt"
)

// Scenario is a named demonstration program. Run spawns coroutines on the
// executor, drives it and reports the outcome; a deadlock surfaces as an
// error wrapping asyncrt.ErrDeadlock.
type Scenario struct {
	Name        string
	Description string
	Run         func(ctx context.Context, ex *asyncrt.Executor) error
}

var builtin = []Scenario{
	{
		Name:        "choose",
		Description: "one coroutine multiplexes two producers with choose",
		Run:         runChoose,
	},
	{
		Name:        "deadlock",
		Description: "two coroutines wait on each other's channel forever",
		Run:         runDeadlock,
	},
	{
		Name:        "pipeline",
		Description: "producer, doubler and consumer over buffered channels",
		Run:         runPipeline,
	},
	{
		Name:        "sleepers",
		Description: "coroutines sleep for different durations and wake in order",
		Run:         runSleepers,
	},
}

// All returns every scenario available on this platform, sorted by name.
func All() []Scenario {
	out := append(slices.Clone(builtin), platformScenarios()...)
	slices.SortFunc(out, func(a, b Scenario) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})
	return out
}

// Lookup finds a scenario by name.
func Lookup(name string) (Scenario, bool) {
	for _, sc := range All() {
		if sc.Name == name {
			return sc, true
		}
	}
	return Scenario{}, false
}

// release kills whatever is still blocked and then drops the channels, so
// no channel is torn down with clauses queued on it. loc is reported as the
// site of every close.
func release(ex *asyncrt.Executor, loc string, chans ...asyncrt.ChannelID) {
	ex.Close()
	for _, ch := range chans {
		_ = ex.ChanCloseAt(loc, ch) //nolint:errcheck
	}
}
