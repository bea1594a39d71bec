package scenario

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"corodebug/internal/asyncrt"
	"corodebug/internal/trace"
)

func TestAllSortedAndUnique(t *testing.T) {
	all := All()
	if len(all) < len(builtin) {
		t.Fatalf("All() returned %d scenarios, want at least %d", len(all), len(builtin))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Name >= all[i].Name {
			t.Fatalf("scenarios not sorted or duplicated: %q before %q", all[i-1].Name, all[i].Name)
		}
	}
	for _, sc := range all {
		if sc.Description == "" || sc.Run == nil {
			t.Fatalf("scenario %q is incomplete", sc.Name)
		}
	}
}

func TestLookup(t *testing.T) {
	if sc, ok := Lookup("pipeline"); !ok || sc.Name != "pipeline" {
		t.Fatalf("Lookup(pipeline) = %q, %v", sc.Name, ok)
	}
	if _, ok := Lookup("nope"); ok {
		t.Fatalf("Lookup(nope) succeeded")
	}
}

func TestScenariosComplete(t *testing.T) {
	for _, sc := range All() {
		if sc.Name == "deadlock" {
			continue
		}
		t.Run(sc.Name, func(t *testing.T) {
			res := Run(context.Background(), sc, Options{DumpOnDeadlock: true})
			if res.Err != nil {
				t.Fatalf("Run: %v\n%s", res.Err, res.Output)
			}
			if len(res.Output) != 0 {
				t.Fatalf("untraced run produced output:\n%s", res.Output)
			}
		})
	}
}

func TestScenariosUnderFuzzScheduling(t *testing.T) {
	for _, name := range []string{"pipeline", "choose", "sleepers"} {
		sc, _ := Lookup(name)
		for seed := uint64(1); seed <= 5; seed++ {
			res := Run(context.Background(), sc, Options{Fuzz: true, Seed: seed})
			if res.Err != nil {
				t.Fatalf("%s seed %d: %v", name, seed, res.Err)
			}
		}
	}
}

func TestDeadlockScenarioDumps(t *testing.T) {
	sc, _ := Lookup("deadlock")
	res := Run(context.Background(), sc, Options{DumpOnDeadlock: true})
	if !errors.Is(res.Err, asyncrt.ErrDeadlock) {
		t.Fatalf("Err = %v, want ErrDeadlock", res.Err)
	}
	out := string(res.Output)
	for _, want := range []string{
		"COROUTINE  state",
		"{1}        chr(R<1>)",
		"{2}        chr(R<2>)",
		"CHANNEL  msgs/max",
		"programs.go:",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump missing %q:\n%s", want, out)
		}
	}

	quiet := Run(context.Background(), sc, Options{})
	if !errors.Is(quiet.Err, asyncrt.ErrDeadlock) || len(quiet.Output) != 0 {
		t.Fatalf("deadlock without dump: err %v, output %q", quiet.Err, quiet.Output)
	}
}

func TestRunTracesWhenContextEnablesIt(t *testing.T) {
	sc, _ := Lookup("sleepers")
	ctx := trace.WithLevel(context.Background(), trace.LevelOn)
	res := Run(ctx, sc, Options{})
	if res.Err != nil {
		t.Fatalf("Run: %v", res.Err)
	}
	out := string(res.Output)
	if !strings.HasPrefix(out, "==> ") || !strings.Contains(out, "msleep(10) at programs.go:") {
		t.Fatalf("unexpected trace output:\n%s", out)
	}
}

func TestDeadlockTraceReportsScenarioCloseSite(t *testing.T) {
	sc, _ := Lookup("deadlock")
	ctx := trace.WithLevel(context.Background(), trace.LevelOn)
	res := Run(ctx, sc, Options{})
	out := string(res.Output)
	for _, ch := range []string{"<1>", "<2>"} {
		if !strings.Contains(out, "hclose("+ch+") at programs.go:") {
			t.Fatalf("missing hclose(%s) at programs.go in trace:\n%s", ch, out)
		}
	}
	if strings.Contains(out, "at scenario.go:") {
		t.Fatalf("close attributed to the helper:\n%s", out)
	}
}

func TestRunAllKeepsInputOrder(t *testing.T) {
	scs := All()
	results, err := RunAll(context.Background(), scs, Options{Jobs: 3})
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(results) != len(scs) {
		t.Fatalf("got %d results, want %d", len(results), len(scs))
	}
	for i, res := range results {
		if res.Name != scs[i].Name {
			t.Fatalf("result %d is %q, want %q", i, res.Name, scs[i].Name)
		}
		if wantErr := res.Name == "deadlock"; (res.Err != nil) != wantErr {
			t.Fatalf("%s: unexpected error state %v", res.Name, res.Err)
		}
	}
}

func TestRunAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := RunAll(ctx, All(), Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("RunAll = %v, want context.Canceled", err)
	}
}

type exitCalled struct{ code int }

func TestFatalErrorFlushesCapturedOutput(t *testing.T) {
	var stderr bytes.Buffer
	sc := Scenario{
		Name: "explode",
		Run: func(ctx context.Context, ex *asyncrt.Executor) error {
			ex.Go(func(co *asyncrt.Co) { panic("boom") })
			return ex.Run(ctx)
		},
	}
	defer func() {
		got, ok := recover().(exitCalled)
		if !ok || got.code != 134 {
			t.Fatalf("expected exit 134, got %v", got)
		}
		if stderr.String() != "panic: coroutine {1} panicked: boom\n" {
			t.Fatalf("stderr = %q", stderr.String())
		}
	}()
	Run(context.Background(), sc, Options{
		Stderr: &stderr,
		Exit:   func(code int) { panic(exitCalled{code}) },
	})
	t.Fatalf("Run returned after a fatal error")
}
