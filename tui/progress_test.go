package tui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dsaleh/dot/internal/installer"
)

func TestProgressModel_tracksStates(t *testing.T) {
	ch := make(chan installer.ProgressMsg)
	m := newProgressModel([]string{"rg", "bat"}, ch)

	steps := []installer.ProgressMsg{
		{Program: "rg", State: installer.StateDownloading, Version: "14.1.0", Bytes: 2 << 20, Total: 4 << 20},
		{Program: "bat", State: installer.StateError, Err: errors.New("bat: download failed: 404")},
		{Program: "unknown", State: installer.StateDone},
	}
	for _, s := range steps {
		next, cmd := m.Update(s)
		m = next.(progressModel)
		assert.NotNil(t, cmd, "keeps reading the channel")
	}

	view := m.View()
	assert.Contains(t, view, "downloading 2.1 MB / 4.2 MB")
	assert.Contains(t, view, "404")
	assert.Equal(t, 2, m.failed())

	next, _ := m.Update(installer.ProgressMsg{Program: "rg", State: installer.StateDone, Version: "14.1.0"})
	m = next.(progressModel)
	next, _ = m.Update(closedMsg{})
	m = next.(progressModel)

	assert.True(t, m.done)
	assert.Equal(t, 1, m.failed())
	assert.Contains(t, m.View(), "1 installed, 1 failed")
}

func TestProgressModel_unknownTotal(t *testing.T) {
	e := &progressEntry{name: "rg", state: installer.StateDownloading, bytes: 1500, total: -1}
	assert.Equal(t, "downloading 1.5 kB", e.detail())
}
