package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"ngasync/internal/core/app"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

func displayPath(path, root string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

func formatSummary(s app.Summary, root string) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("ngasync") + " ")
	b.WriteString(fmt.Sprintf("%d file(s), %d site(s) lowered", len(s.Files), s.Sites))
	b.WriteString(mutedStyle.Render(fmt.Sprintf(" in %s", s.Duration.Round(time.Millisecond))))
	b.WriteString("\n")

	counts := []string{
		okStyle.Render(fmt.Sprintf("%d rewritten", s.Rewritten)),
		fmt.Sprintf("%d unchanged", s.Unchanged),
		fmt.Sprintf("%d cached", s.Cached),
	}
	if s.Removed > 0 {
		counts = append(counts, fmt.Sprintf("%d removed", s.Removed))
	}
	if s.Skipped > 0 {
		counts = append(counts, warnStyle.Render(fmt.Sprintf("%d skipped", s.Skipped)))
	}
	if s.Failed > 0 {
		counts = append(counts, failStyle.Render(fmt.Sprintf("%d failed", s.Failed)))
	}
	b.WriteString("  " + strings.Join(counts, " | ") + "\n")

	for _, r := range s.Files {
		path := displayPath(r.Path, root)
		switch r.Outcome {
		case app.OutcomeFailed:
			b.WriteString(fmt.Sprintf("  %s %s: %v\n", failStyle.Render("✗"), path, r.Err))
		case app.OutcomeSkipped:
			b.WriteString(fmt.Sprintf("  %s %s: %v\n", warnStyle.Render("!"), path, r.Err))
		}
		for _, d := range r.Diagnostics {
			b.WriteString(fmt.Sprintf("  %s %s:%d:%d %s\n", warnStyle.Render("!"), path, d.Line, d.Column, d.Message))
		}
	}
	return b.String()
}
