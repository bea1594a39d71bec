package version

import (
	"regexp"
	"strings"
	"testing"

	"github.com/fatih/color"
)

var ansi = regexp.MustCompile("\x1b\\[[0-9;]*m")

func TestColoredWithoutColor(t *testing.T) {
	orig, origNoColor := Version, color.NoColor
	t.Cleanup(func() { Version, color.NoColor = orig, origNoColor })
	color.NoColor = true

	tests := []struct {
		in   string
		want string
	}{
		{"1.2.3", "1.2.3"},
		{"0.1.0-dev", "0.1.0-dev"},
		{"1.2.3-rc.1+build.123", "1.2.3-rc.1+build.123"},
		{"nightly", "nightly"},
		{"  ", "dev"},
	}
	for _, tt := range tests {
		Version = tt.in
		if got := Colored(); got != tt.want {
			t.Errorf("Colored() with Version=%q = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestColoredWithColor(t *testing.T) {
	orig, origNoColor := Version, color.NoColor
	t.Cleanup(func() { Version, color.NoColor = orig, origNoColor })
	color.NoColor = false

	Version = "1.2.3-dev"
	got := Colored()
	if !strings.HasPrefix(got, "\x1b[33;1m1") || !strings.HasSuffix(got, "-dev") {
		t.Fatalf("Colored() = %q, want a yellow major number and plain suffix", got)
	}
	if plain := ansi.ReplaceAllString(got, ""); plain != "1.2.3-dev" {
		t.Fatalf("Colored() without escapes = %q, want %q", plain, "1.2.3-dev")
	}
}

func TestVersionCanBeOverridden(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate })

	Version = "1.2.3"
	GitCommit = "abc123def456"
	BuildDate = "2024-01-15T10:30:00Z"
	if Version != "1.2.3" || GitCommit != "abc123def456" || BuildDate != "2024-01-15T10:30:00Z" {
		t.Fatalf("overrides not applied: %q %q %q", Version, GitCommit, BuildDate)
	}
}
