package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

var huhTheme = huh.ThemeCharm()

type selectorModel struct {
	form   *huh.Form
	result *[]string // heap-allocated so the form's captured pointer stays valid
	done   bool
	quit   bool
}

func newSelectorModel(ids []string) selectorModel {
	result := make([]string, 0)

	opts := make([]huh.Option[string], len(ids))
	for i, id := range ids {
		opts[i] = huh.NewOption(id, id)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Select binaries to install").
				Description("space: toggle  •  enter: confirm  •  /: filter  •  esc: quit").
				Options(opts...).
				Filterable(true).
				Value(&result),
		),
	).WithTheme(huhTheme).WithHeight(20)

	return selectorModel{form: form, result: &result}
}

func (m selectorModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m selectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.done = true
	case huh.StateAborted:
		m.quit = true
		return m, tea.Quit
	}

	return m, cmd
}

func (m selectorModel) View() string {
	return m.form.View()
}

func (m selectorModel) selected() []string {
	if m.result == nil {
		return nil
	}
	return *m.result
}
