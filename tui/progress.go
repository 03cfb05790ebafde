package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/dsaleh/dot/internal/installer"
)

var (
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleDone    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleActive  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	stylePending = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type progressEntry struct {
	name    string
	state   installer.State
	version string
	bytes   int64
	total   int64
	err     error
}

type progressModel struct {
	entries map[string]*progressEntry
	order   []string
	ch      <-chan installer.ProgressMsg
	spinner spinner.Model
	done    bool
}

// closedMsg is delivered once the installer channel is drained.
type closedMsg struct{}

func waitForProgress(ch <-chan installer.ProgressMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return msg
	}
}

func newProgressModel(programs []string, ch <-chan installer.ProgressMsg) progressModel {
	entries := make(map[string]*progressEntry, len(programs))
	for _, name := range programs {
		entries[name] = &progressEntry{name: name, state: installer.StatePending, total: -1}
	}
	return progressModel{
		entries: entries,
		order:   programs,
		ch:      ch,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styleActive)),
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForProgress(m.ch))
}

func (m *progressModel) apply(msg installer.ProgressMsg) {
	e, ok := m.entries[msg.Program]
	if !ok {
		return
	}
	e.state = msg.State
	if msg.Version != "" {
		e.version = msg.Version
	}
	if msg.State == installer.StateDownloading {
		e.bytes, e.total = msg.Bytes, msg.Total
	}
	e.err = msg.Err
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.done || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case installer.ProgressMsg:
		m.apply(msg)
		return m, waitForProgress(m.ch)
	case closedMsg:
		m.done = true
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) failed() int {
	n := 0
	for _, e := range m.entries {
		if e.state != installer.StateDone {
			n++
		}
	}
	return n
}

func (e *progressEntry) detail() string {
	if e.state != installer.StateDownloading {
		return e.state.String()
	}
	if e.total > 0 {
		return fmt.Sprintf("downloading %s / %s", humanize.Bytes(uint64(e.bytes)), humanize.Bytes(uint64(e.total)))
	}
	return "downloading " + humanize.Bytes(uint64(e.bytes))
}

func (m progressModel) View() string {
	var sb strings.Builder
	sb.WriteString("\n  Installing binaries\n\n")

	installed, failed := 0, 0
	for _, name := range m.order {
		e := m.entries[name]
		var line string
		switch e.state {
		case installer.StateDone:
			line = styleDone.Render(fmt.Sprintf("  ✓ %-20s %s", e.name, e.version))
			installed++
		case installer.StateError:
			line = styleError.Render(fmt.Sprintf("  ✗ %-20s %v", e.name, e.err))
			failed++
		case installer.StatePending:
			line = stylePending.Render(fmt.Sprintf("  · %-20s pending", e.name))
		default:
			line = fmt.Sprintf("  %s %-20s %s", m.spinner.View(), e.name, e.detail())
		}
		sb.WriteString(line + "\n")
	}

	if m.done {
		sb.WriteString(fmt.Sprintf("\n  %d installed, %d failed\n", installed, failed))
		sb.WriteString("\n  Press any key to exit\n")
	}
	return sb.String()
}
