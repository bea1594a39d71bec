package scenario

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"corodebug/internal/asyncrt"
	"corodebug/internal/debug"
	"corodebug/internal/trace"
)

// Options configures how scenarios are executed.
type Options struct {
	TimerMode      asyncrt.TimerMode
	Fuzz           bool
	Seed           uint64
	DumpOnDeadlock bool
	// Jobs bounds how many scenarios run at once; <= 0 selects GOMAXPROCS.
	Jobs int
	// Shared runs scenarios on the process-wide registry, so dumps and
	// trace lines reach stderr as they happen. It implies Jobs = 1.
	Shared bool
	// Stderr receives a scenario's buffered output before a fatal exit.
	// nil selects os.Stderr.
	Stderr io.Writer
	// Exit replaces os.Exit for fatal errors.
	Exit func(code int)
}

// Result is the outcome of one scenario.
type Result struct {
	Name string
	// Output holds the dump and trace lines the scenario produced. It is
	// empty for shared runs.
	Output  []byte
	Err     error
	Elapsed time.Duration
}

// Run executes a single scenario on a fresh executor. The trace level is
// taken from ctx.
func Run(ctx context.Context, sc Scenario, opts Options) Result {
	var (
		buf bytes.Buffer
		reg *debug.Registry
	)
	if opts.Shared {
		reg = debug.Default()
		reg.SetTraceLevel(trace.LevelFrom(ctx))
	} else {
		reg = debug.New(debug.Config{
			Output:     &buf,
			Exit:       fatalExit(&buf, opts),
			TraceLevel: trace.LevelFrom(ctx),
		})
	}
	ex := asyncrt.NewExecutor(asyncrt.Config{
		Fuzz:           opts.Fuzz,
		Seed:           opts.Seed,
		TimerMode:      opts.TimerMode,
		Registry:       reg,
		DumpOnDeadlock: opts.DumpOnDeadlock,
	})

	start := time.Now()
	err := sc.Run(ctx, ex)
	ex.Close()
	if err != nil {
		err = fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	return Result{
		Name:    sc.Name,
		Output:  buf.Bytes(),
		Err:     err,
		Elapsed: time.Since(start),
	}
}

// RunAll executes scenarios, each on its own executor and registry, and
// returns their results in input order. A failing scenario does not stop
// the others; only cancellation of ctx does.
func RunAll(ctx context.Context, scenarios []Scenario, opts Options) ([]Result, error) {
	results := make([]Result, len(scenarios))
	if len(scenarios) == 0 {
		return results, nil
	}
	jobs := opts.Jobs
	if opts.Shared {
		jobs = 1
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(scenarios)))
	for i, sc := range scenarios {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = Run(gctx, sc, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// fatalExit flushes a scenario's captured output before the process dies,
// so the panic line is not lost with the buffer.
func fatalExit(buf *bytes.Buffer, opts Options) func(int) {
	return func(code int) {
		w := opts.Stderr
		if w == nil {
			w = os.Stderr
		}
		_, _ = w.Write(buf.Bytes()) //nolint:errcheck
		if opts.Exit != nil {
			opts.Exit(code)
			return
		}
		os.Exit(code)
	}
}
