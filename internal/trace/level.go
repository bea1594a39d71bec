package trace

import (
	"fmt"
	"strconv"
	"strings"
)

// Level controls tracing verbosity.
type Level int

const (
	// LevelOff disables tracing.
	LevelOff Level = 0
	// LevelOn is the canonical enabled level.
	LevelOn Level = 1
)

// Enabled reports whether the level turns tracing on.
func (l Level) Enabled() bool {
	return l > LevelOff
}

// String returns the string representation of Level.
func (l Level) String() string {
	switch {
	case l <= LevelOff:
		return "off"
	case l == LevelOn:
		return "on"
	default:
		return strconv.Itoa(int(l))
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off":
		return LevelOff, nil
	case "on":
		return LevelOn, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|on|<integer>)", s)
	}
	return Level(n), nil
}
