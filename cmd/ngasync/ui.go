package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ngasync/internal/core/app"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	list       list.Model
	root       string
	summary    app.Summary
	lastUpdate time.Time
	batches    int
}

type updateMsg struct {
	update app.Update
}

func initialModel(root string) model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Files"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return model{
		list:       l,
		root:       root,
		lastUpdate: time.Now(),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
	case updateMsg:
		m.summary = msg.update.Summary
		m.lastUpdate = msg.update.At
		m.batches++
		m.list.SetItems(resultItems(m.summary, m.root))
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// resultItems lists problems first, then rewritten files.
func resultItems(s app.Summary, root string) []list.Item {
	var problems, rewritten []list.Item
	for _, r := range s.Files {
		path := displayPath(r.Path, root)
		switch r.Outcome {
		case app.OutcomeFailed:
			problems = append(problems, item{title: "Failed: " + path, desc: fmt.Sprint(r.Err)})
		case app.OutcomeSkipped:
			problems = append(problems, item{title: "Skipped: " + path, desc: fmt.Sprint(r.Err)})
		case app.OutcomeRewritten:
			desc := fmt.Sprintf("%d site(s)", r.Sites)
			if r.Cached {
				desc += ", cached"
			}
			rewritten = append(rewritten, item{title: path, desc: desc})
		case app.OutcomeRemoved:
			rewritten = append(rewritten, item{title: path, desc: "source removed"})
		}
		for _, d := range r.Diagnostics {
			problems = append(problems, item{
				title: fmt.Sprintf("Untransformed: %s:%d", path, d.Line),
				desc:  d.Message,
			})
		}
	}
	return append(problems, rewritten...)
}

func (m model) View() string {
	s := m.summary
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d batch(es) | %d files | %d sites",
		m.lastUpdate.Format("15:04:05"), m.batches, len(s.Files), s.Sites))

	var state string
	switch {
	case s.Failed > 0:
		state = failStyle.Render(fmt.Sprintf("%d failed", s.Failed))
	case s.Skipped > 0 || s.Diagnostics > 0:
		state = warnStyle.Render(fmt.Sprintf("%d skipped | %d untransformed", s.Skipped, s.Diagnostics))
	default:
		state = okStyle.Render("All sites lowered")
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("ngasync watch"), status, state)
	return docStyle.Render(header + "\n" + m.list.View())
}

func runUI(ctx context.Context, a *app.App, configPath, root string) int {
	p := tea.NewProgram(initialModel(root), tea.WithAltScreen(), tea.WithContext(ctx))

	a.SetUpdateHandler(func(u app.Update) {
		p.Send(updateMsg{update: u})
	})
	if err := a.StartWatcher(ctx, configPath); err != nil {
		slog.Error("failed to start watcher", "error", err)
		return 1
	}
	go func() {
		if u, ok := a.LastUpdate(); ok {
			p.Send(updateMsg{update: u})
		}
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		slog.Error("failed to run UI", "error", err)
		return 1
	}
	return 0
}
