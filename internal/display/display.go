// Package display renders the launcher's terminal output that is meant for
// people rather than log processors.
package display

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#42E7FF"))

	urlStyle = lipgloss.NewStyle().
			Underline(true).
			Foreground(lipgloss.Color("#60F281"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#7F6DFF")).
			Padding(0, 2)

	checkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#60F281"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4473"))
)

// Banner is printed once before the server starts.
func Banner(title, url string) string {
	body := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render(title),
		"",
		"Open "+urlStyle.Render(url),
		"Press Ctrl+C to stop",
	)
	return boxStyle.Render(body)
}

// CheckResult is one line of `smsdash check` output.
type CheckResult struct {
	Name   string
	OK     bool
	Detail string
}

// Checks renders preflight results, one per line.
func Checks(results []CheckResult) string {
	width := 0
	for _, r := range results {
		width = max(width, lipgloss.Width(r.Name))
	}

	var b strings.Builder
	for _, r := range results {
		mark := checkStyle.Render("ok")
		if !r.OK {
			mark = failStyle.Render("FAIL")
		}
		b.WriteString(mark)
		b.WriteString("  ")
		b.WriteString(r.Name)
		b.WriteString(strings.Repeat(" ", width-lipgloss.Width(r.Name)))
		if r.Detail != "" {
			b.WriteString("  ")
			b.WriteString(r.Detail)
		}
		b.WriteString("\n")
	}
	return b.String()
}
