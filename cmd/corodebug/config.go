package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"corodebug/internal/asyncrt"
	"corodebug/internal/trace"
)

const configFileName = "corodebug.toml"

type fileConfig struct {
	Trace traceFileConfig `toml:"trace"`
	Run   runFileConfig   `toml:"run"`
}

type traceFileConfig struct {
	Level string `toml:"level"`
}

type runFileConfig struct {
	Clock          string `toml:"clock"`
	Fuzz           bool   `toml:"fuzz"`
	Seed           uint64 `toml:"seed"`
	DumpOnDeadlock bool   `toml:"dump_on_deadlock"`
	Jobs           int    `toml:"jobs"`
}

// runSettings is the effective configuration of a run: defaults, then the
// config file, then explicit flags.
type runSettings struct {
	Level          trace.Level
	Clock          asyncrt.TimerMode
	Fuzz           bool
	Seed           uint64
	DumpOnDeadlock bool
	Jobs           int
	// ConfigPath is the file the settings were read from, if any.
	ConfigPath string
}

func defaultRunSettings() runSettings {
	return runSettings{
		Level:          trace.LevelOff,
		Clock:          asyncrt.TimerModeVirtual,
		DumpOnDeadlock: true,
	}
}

func findConfigFile(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// loadConfigFile applies the keys present in path on top of s. Keys the
// file leaves out keep their current value.
func loadConfigFile(path string, s *runSettings) error {
	var cfg fileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if meta.IsDefined("trace", "level") {
		level, err := trace.ParseLevel(cfg.Trace.Level)
		if err != nil {
			return fmt.Errorf("%s: [trace].level: %w", path, err)
		}
		s.Level = level
	}
	if meta.IsDefined("run", "clock") {
		mode, ok := asyncrt.ParseTimerMode(cfg.Run.Clock)
		if !ok {
			return fmt.Errorf("%s: [run].clock must be virtual or real, got %q", path, cfg.Run.Clock)
		}
		s.Clock = mode
	}
	if meta.IsDefined("run", "fuzz") {
		s.Fuzz = cfg.Run.Fuzz
	}
	if meta.IsDefined("run", "seed") {
		s.Seed = cfg.Run.Seed
	}
	if meta.IsDefined("run", "dump_on_deadlock") {
		s.DumpOnDeadlock = cfg.Run.DumpOnDeadlock
	}
	if meta.IsDefined("run", "jobs") {
		if cfg.Run.Jobs < 0 {
			return fmt.Errorf("%s: [run].jobs must not be negative", path)
		}
		s.Jobs = cfg.Run.Jobs
	}
	s.ConfigPath = path
	return nil
}

// resolveRunSettings loads the config file named by --config, or the first
// one found upward from startDir, and applies the flags the user set.
func resolveRunSettings(cmd *cobra.Command, startDir string) (runSettings, error) {
	s := defaultRunSettings()

	configPath := ""
	if f := cmd.Flag("config"); f != nil {
		configPath = f.Value.String()
	}
	if configPath == "" {
		found, ok, err := findConfigFile(startDir)
		if err != nil {
			return s, err
		}
		if ok {
			configPath = found
		}
	}
	if configPath != "" {
		if err := loadConfigFile(configPath, &s); err != nil {
			return s, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("trace-level") {
		value, err := flags.GetString("trace-level")
		if err != nil {
			return s, fmt.Errorf("failed to get trace-level flag: %w", err)
		}
		level, err := trace.ParseLevel(value)
		if err != nil {
			return s, err
		}
		s.Level = level
	}
	if flags.Changed("clock") {
		value, err := flags.GetString("clock")
		if err != nil {
			return s, fmt.Errorf("failed to get clock flag: %w", err)
		}
		mode, ok := asyncrt.ParseTimerMode(value)
		if !ok {
			return s, fmt.Errorf("invalid --clock value %q (expected virtual|real)", value)
		}
		s.Clock = mode
	}
	if flags.Changed("fuzz") {
		fuzz, err := flags.GetBool("fuzz")
		if err != nil {
			return s, fmt.Errorf("failed to get fuzz flag: %w", err)
		}
		s.Fuzz = fuzz
	}
	if flags.Changed("seed") {
		seed, err := flags.GetUint64("seed")
		if err != nil {
			return s, fmt.Errorf("failed to get seed flag: %w", err)
		}
		s.Seed = seed
	}
	if flags.Changed("no-dump") {
		noDump, err := flags.GetBool("no-dump")
		if err != nil {
			return s, fmt.Errorf("failed to get no-dump flag: %w", err)
		}
		s.DumpOnDeadlock = !noDump
	}
	if flags.Changed("jobs") {
		jobs, err := flags.GetInt("jobs")
		if err != nil {
			return s, fmt.Errorf("failed to get jobs flag: %w", err)
		}
		if jobs < 0 {
			return s, fmt.Errorf("--jobs must not be negative")
		}
		s.Jobs = jobs
	}
	return s, nil
}
