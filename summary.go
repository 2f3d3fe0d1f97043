package main

import (
	"fmt"
	"strings"

	"github.com/celestia-astro/astroprobe/framework"

	"github.com/charmbracelet/lipgloss"
)

var (
	summaryTitleStyle = lipgloss.NewStyle().Bold(true)
	summaryOKStyle    = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("2")).
				Padding(0, 1)
	summaryFailedStyle = summaryOKStyle.BorderForeground(lipgloss.Color("1"))
)

// renderSummary draws the end-of-run panel: totals, success rate, and the failed tests
// with the detail each one reported.
func renderSummary(results framework.Results) string {
	passed := results.Passed()
	_, failed, skipped := results.Counts()
	var b strings.Builder
	b.WriteString(summaryTitleStyle.Render("Test summary"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Total:   %d\n", passed+failed+skipped)
	fmt.Fprintf(&b, "Passed:  %d\n", passed)
	fmt.Fprintf(&b, "Failed:  %d\n", failed)
	fmt.Fprintf(&b, "Skipped: %d\n", skipped)
	fmt.Fprintf(&b, "Success rate: %.1f%%", results.SuccessRate())
	if len(results.Failures) > 0 {
		b.WriteString("\n\n")
		b.WriteString(summaryTitleStyle.Render("Failed tests"))
		for _, f := range results.Failures {
			fmt.Fprintf(&b, "\n  %s", f.TestID)
			if f.Detail != "" {
				fmt.Fprintf(&b, ": %s", f.Detail)
			}
		}
	}
	style := summaryOKStyle
	if !results.OK() {
		style = summaryFailedStyle
	}
	return style.Render(b.String())
}
