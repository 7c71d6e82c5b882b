package cli

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/tilestyle/pkg/transform"
)

func newTestWatchModel(t *testing.T) *watchModel {
	t.Helper()
	c := newTestCLI(t)
	e, err := c.newEngine(context.Background())
	require.NoError(t, err)
	t.Cleanup(e.Close)
	require.NoError(t, e.open(context.Background(), writeStyle(t, testStyle), nil))

	m := newWatchModel(e, transform.State{Width: 512, Height: 512, Zoom: 2}, []string{"night"})
	m.applyClasses()
	return m
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestWatchModelFrames(t *testing.T) {
	m := newTestWatchModel(t)

	_, cmd := m.Update(frameMsg{})
	assert.NotNil(t, cmd, "a frame schedules the next one")
	assert.Equal(t, 1, m.frames)
	assert.True(t, m.snap.Loaded)

	view := m.View()
	assert.Contains(t, view, "Test")
	assert.Contains(t, view, "zoom 2.0")
	assert.Contains(t, view, "[night]")
}

func TestWatchModelKeys(t *testing.T) {
	m := newTestWatchModel(t)

	m.Update(key("+"))
	assert.Equal(t, 2.5, m.view.Zoom)
	m.Update(key("-"))
	m.Update(key("-"))
	assert.Equal(t, 1.5, m.view.Zoom)

	m.Update(key("l"))
	assert.Greater(t, m.view.Center[0], 0.0)
	m.Update(key("]"))
	assert.Equal(t, 15.0, m.view.Bearing)
	m.Update(key("["))
	m.Update(key("["))
	assert.Equal(t, 345.0, m.view.Bearing)

	assert.Equal(t, []string{"night"}, m.e.style.ActiveClasses())
	m.Update(key("c"))
	assert.Empty(t, m.e.style.ActiveClasses())
	m.Update(key("c"))
	assert.Equal(t, []string{"night"}, m.e.style.ActiveClasses())

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
