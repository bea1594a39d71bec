package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"corodebug/internal/asyncrt"
	"corodebug/internal/observ"
	"corodebug/internal/scenario"
)

var runCmd = &cobra.Command{
	Use:   "run [scenario...]",
	Short: "Run scenarios and report deadlocks",
	Long: `Run the named scenarios, or all of them when none is named. A scenario
that deadlocks dumps the state of its coroutines and channels to stderr and
makes the command fail.`,
	RunE: runScenarios,
}

func init() {
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("trace-level", "off", "trace runtime operations (off|on|N)")
	cmd.Flags().String("clock", "virtual", "timer clock (virtual|real)")
	cmd.Flags().Bool("fuzz", false, "pick ready coroutines in random order")
	cmd.Flags().Uint64("seed", 0, "seed for --fuzz scheduling")
	cmd.Flags().Bool("no-dump", false, "do not dump state when a scenario deadlocks")
	cmd.Flags().Int("jobs", 0, "scenarios to run in parallel (0 = GOMAXPROCS, 1 = stream output live)")
}

func runScenarios(cmd *cobra.Command, args []string) error {
	timings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	timer := observ.NewTimer()

	phase := timer.Begin("config")
	settings, err := resolveRunSettings(cmd, ".")
	if err != nil {
		return err
	}
	timer.End(phase, settings.ConfigPath)

	selected, err := selectScenarios(args)
	if err != nil {
		return err
	}

	ctx := setupTracing(cmd, settings.Level)
	opts := scenario.Options{
		TimerMode:      settings.Clock,
		Fuzz:           settings.Fuzz,
		Seed:           settings.Seed,
		DumpOnDeadlock: settings.DumpOnDeadlock,
		Jobs:           settings.Jobs,
		Shared:         settings.Jobs == 1,
	}
	results, err := scenario.RunAll(ctx, selected, opts)
	if err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}

	failed := reportResults(cmd.OutOrStdout(), cmd.ErrOrStderr(), results)
	if timings {
		for _, res := range results {
			timer.Record(res.Name, res.Elapsed, outcome(res.Err))
		}
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(results))
	}
	return nil
}

func selectScenarios(names []string) ([]scenario.Scenario, error) {
	if len(names) == 0 {
		return scenario.All(), nil
	}
	selected := make([]scenario.Scenario, 0, len(names))
	for _, name := range names {
		sc, ok := scenario.Lookup(name)
		if !ok {
			known := make([]string, 0)
			for _, s := range scenario.All() {
				known = append(known, s.Name)
			}
			return nil, fmt.Errorf("unknown scenario %q (available: %s)", name, strings.Join(known, ", "))
		}
		selected = append(selected, sc)
	}
	return selected, nil
}

// reportResults copies each scenario's captured output to stderr and a
// status line to stdout, in input order. It returns the number of failures.
func reportResults(stdout, stderr io.Writer, results []scenario.Result) int {
	ok := color.New(color.FgGreen, color.Bold)
	fail := color.New(color.FgRed, color.Bold)
	failed := 0
	for _, res := range results {
		if len(res.Output) > 0 {
			_, _ = stderr.Write(res.Output) //nolint:errcheck
		}
		if res.Err == nil {
			fmt.Fprintf(stdout, "%s %s (%.1f ms)\n", ok.Sprint("ok  "), res.Name, toMillis(res.Elapsed))
			continue
		}
		failed++
		fmt.Fprintf(stdout, "%s %s: %v\n", fail.Sprint("FAIL"), res.Name, res.Err)
	}
	return failed
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, asyncrt.ErrDeadlock):
		return "deadlock"
	default:
		return "failed"
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
