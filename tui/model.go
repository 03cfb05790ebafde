package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dsaleh/dot/internal/installer"
)

var styleRed = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

type screen int

const (
	screenSelector screen = iota
	screenProblem
	screenProgress
)

// PlanFunc turns selected ids into install jobs, resolving versions and
// descriptors. A non-nil error aborts before anything is downloaded.
type PlanFunc func(ctx context.Context, ids []string) ([]installer.Job, error)

// RootModel is the top-level bubbletea model.
type RootModel struct {
	screen   screen
	selector selectorModel
	problem  problemModel
	progress progressModel

	ctx   context.Context
	inst  *installer.Installer
	plan  PlanFunc
	start []string
}

type problemModel struct {
	err error
}

func (m problemModel) View() string {
	var sb strings.Builder
	sb.WriteString(styleRed.Render("\n  Cannot install the selection:\n\n"))
	for _, line := range strings.Split(m.err.Error(), "\n") {
		sb.WriteString(styleRed.Render("    • "+line) + "\n")
	}
	sb.WriteString("\n  Fix the configuration and re-run.\n\n  Press any key to exit.\n")
	return sb.String()
}

// New creates the root TUI model. With preselected ids the selector is
// skipped and installation starts right away.
func New(ctx context.Context, inst *installer.Installer, ids, preselected []string, plan PlanFunc) RootModel {
	m := RootModel{
		screen: screenSelector,
		ctx:    ctx,
		inst:   inst,
		plan:   plan,
		start:  preselected,
	}
	if len(preselected) == 0 {
		m.selector = newSelectorModel(ids)
	}
	return m
}

func (m RootModel) Init() tea.Cmd {
	if len(m.start) > 0 {
		ids := m.start
		return func() tea.Msg { return startMsg(ids) }
	}
	return m.selector.Init()
}

// startMsg carries the final selection into the install phase.
type startMsg []string

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if sm, ok := msg.(startMsg); ok {
		return m.begin(sm)
	}

	switch m.screen {
	case screenSelector:
		next, cmd := m.selector.Update(msg)
		m.selector = next.(selectorModel)
		if m.selector.quit {
			return m, tea.Quit
		}
		if m.selector.done {
			ids := m.selector.selected()
			if len(ids) == 0 {
				return m, tea.Quit
			}
			return m.begin(ids)
		}
		return m, cmd

	case screenProblem:
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, tea.Quit
		}

	case screenProgress:
		next, cmd := m.progress.Update(msg)
		m.progress = next.(progressModel)
		return m, cmd
	}

	return m, nil
}

func (m RootModel) begin(ids []string) (tea.Model, tea.Cmd) {
	jobs, err := m.plan(m.ctx, ids)
	if err != nil {
		m.problem = problemModel{err: err}
		m.screen = screenProblem
		return m, nil
	}
	names := make([]string, len(jobs))
	for i, j := range jobs {
		names[i] = j.Descriptor.Name
	}
	m.progress = newProgressModel(names, m.inst.Run(m.ctx, jobs))
	m.screen = screenProgress
	return m, m.progress.Init()
}

func (m RootModel) View() string {
	switch m.screen {
	case screenSelector:
		return m.selector.View()
	case screenProblem:
		return m.problem.View()
	case screenProgress:
		return m.progress.View()
	}
	return ""
}

// Failed reports how many programs did not install. Planning errors count as
// one failure.
func (m RootModel) Failed() int {
	switch m.screen {
	case screenProblem:
		return 1
	case screenProgress:
		return m.progress.failed()
	}
	return 0
}
