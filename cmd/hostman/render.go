package main

import (
	"fmt"
	"sort"
	"strings"

	"hostman/internal/models"

	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	hostStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	skipStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func statusMark(ok bool) string {
	if ok {
		return okStyle.Render("✓")
	}
	return failStyle.Render("✗")
}

// renderResult formats one host result as a status line plus indented
// detail lines.
func renderResult(name string, res models.ExecutionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", statusMark(res.Success), hostStyle.Render(name), dimStyle.Render(res.ConnectionInfo))
	if res.PID > 0 {
		fmt.Fprintf(&b, "    pid: %d\n", res.PID)
	}
	if res.Session != "" {
		fmt.Fprintf(&b, "    session: %s\n", res.Session)
	}
	if res.Output != "" {
		for _, line := range strings.Split(res.Output, "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}
	if res.Error != "" {
		fmt.Fprintf(&b, "    %s\n", failStyle.Render(res.Error))
	}
	return b.String()
}

// renderResults renders a batch result map sorted by host name.
func renderResults(results map[string]models.ExecutionResult) string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(renderResult(name, results[name]))
	}
	return b.String()
}

// renderEnv renders a setup/teardown run, one line per step.
func renderEnv(result models.EnvironmentResult) string {
	var b strings.Builder
	for i, step := range result.Steps {
		switch {
		case step.Skipped:
			fmt.Fprintf(&b, "%s %d. %s (%s)\n", skipStyle.Render("-"), i+1, step.Name, dimStyle.Render("skipped"))
		case step.Success:
			fmt.Fprintf(&b, "%s %d. %s on %s", statusMark(true), i+1, step.Name, hostStyle.Render(step.Target))
			if step.PID > 0 {
				fmt.Fprintf(&b, " %s", dimStyle.Render(fmt.Sprintf("(pid %d)", step.PID)))
			}
			if step.Error != "" {
				fmt.Fprintf(&b, " %s", skipStyle.Render(step.Error))
			}
			b.WriteString("\n")
		default:
			fmt.Fprintf(&b, "%s %d. %s on %s: %s\n", statusMark(false), i+1, step.Name, hostStyle.Render(step.Target), failStyle.Render(step.Error))
		}
	}
	if result.OverallSuccess {
		fmt.Fprintf(&b, "%s\n", okStyle.Render("overall: success"))
	} else {
		fmt.Fprintf(&b, "%s\n", failStyle.Render("overall: failed"))
	}
	return b.String()
}
