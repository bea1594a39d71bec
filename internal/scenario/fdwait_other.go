//go:build !linux

package scenario

func platformScenarios() []Scenario { return nil }
