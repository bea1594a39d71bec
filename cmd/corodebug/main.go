package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"corodebug/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "corodebug",
	Short: "Run coroutine scenarios and inspect their state",
	Long: `corodebug runs small coroutine programs on a cooperative runtime and
shows what every coroutine and channel is doing: a dump on deadlock and an
optional line-by-line trace of runtime operations.`,
	SilenceUsage:      true,
	PersistentPreRunE: applyColorFlag,
}

// main registers subcommands and persistent flags, then executes the root
// command. Any error exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "", "path to "+configFileName+" (default: search upward from the working directory)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
