package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"corodebug/internal/scenario"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in scenarios",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		renderScenarioList(cmd.OutOrStdout(), scenario.All(), !color.NoColor)
		return nil
	},
}

var listHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))

func renderScenarioList(out io.Writer, scenarios []scenario.Scenario, styled bool) {
	width := runewidth.StringWidth("SCENARIO")
	for _, sc := range scenarios {
		width = max(width, runewidth.StringWidth(sc.Name))
	}

	header := pad("SCENARIO", width) + "  DESCRIPTION"
	if styled {
		header = listHeaderStyle.Render(header)
	}
	fmt.Fprintln(out, header)
	for _, sc := range scenarios {
		fmt.Fprintf(out, "%s  %s\n", pad(sc.Name, width), sc.Description)
	}
}

func pad(value string, width int) string {
	if w := runewidth.StringWidth(value); w < width {
		return value + strings.Repeat(" ", width-w)
	}
	return value
}
