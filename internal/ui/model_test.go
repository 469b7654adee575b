package ui

import (
	"context"
	"strings"
	"testing"

	"codeberg.org/sigterm-de/scripter/internal/app"
	"codeberg.org/sigterm-de/scripter/internal/scripter"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T, start string) (Model, *app.App) {
	t.Helper()
	cfg := app.Config{
		TakesDir:       t.TempDir(),
		DebounceMS:     60_000, // tab switches never auto-play here
		StepGapMS:      20,
		Speed:          1,
		FetchTimeoutMS: 50,
		JSTimeoutMS:    2000,
		Completions:    app.CompletionsConfig{Limit: 10, MaxBufferBytes: 1 << 20},
	}
	lib, err := app.LoadLibrary(context.Background(), cfg)
	require.NoError(t, err)
	a, err := app.New(context.Background(), cfg, lib, app.Hooks{})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	prefs := app.AppPreferences{AccentColor: "#7D56F4", CaptionColor: "#F4D35E", CompletionColor: "#3C3C5A", StartTake: start}
	return NewModel(a, prefs, ""), a
}

// onLoop runs fn on the app loop after everything posted so far.
func onLoop(t *testing.T, a *app.App, fn func()) {
	t.Helper()
	require.NoError(t, a.DoSync(context.Background(), func() error {
		fn()
		return nil
	}))
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		next, cmd := m.Update(k)
		m = next.(Model)
		if cmd != nil {
			cmd()
		}
	}
	return m
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestModelTabsActivateTakes(t *testing.T) {
	m, a := newTestModel(t, "Python greeting")
	require.Equal(t, "Python greeting", m.Active())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.NotEqual(t, "Python greeting", m.Active())
	next := m.Active()
	onLoop(t, a, func() { assert.Equal(t, next, a.Scripter.Active()) })

	m = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, "Python greeting", m.Active())
	onLoop(t, a, func() {
		assert.Equal(t, "Python greeting", a.Scripter.Active())
		assert.True(t, a.Scripter.IsPaused(next) || a.Scripter.Status(next) == scripter.StatusIdle)
	})
}

func TestModelUserInputAbandonsToEditing(t *testing.T) {
	m, a := newTestModel(t, "Hello, Go")
	entry, ok := a.Library.Get("Hello, Go")
	require.True(t, ok)

	press(t, m, runes("zz"), tea.KeyMsg{Type: tea.KeyBackspace}, tea.KeyMsg{Type: tea.KeyEnter})
	onLoop(t, a, func() {
		assert.True(t, a.Scripter.IsEditing("Hello, Go"))
	})
	assert.Equal(t, entry.FilledBuffer+"z\n", a.Store.Buffer(a.Scripter.Ref("Hello, Go")))
}

func TestModelControlKeys(t *testing.T) {
	m, a := newTestModel(t, "Python greeting")
	name := "Python greeting"
	entry, _ := a.Library.Get(name)
	onLoop(t, a, func() { a.Scripter.Ready(name) })

	status := func() (st scripter.Status) {
		onLoop(t, a, func() { st = a.Scripter.Status(name) })
		return st
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Equal(t, scripter.StatusRunning, status())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	assert.Equal(t, scripter.StatusPaused, status())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	assert.Equal(t, scripter.StatusRunning, status())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlF})
	assert.Equal(t, scripter.StatusEditing, status())
	assert.Equal(t, entry.FilledBuffer, a.Store.Buffer(a.Scripter.Ref(name)))

	press(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	assert.Equal(t, scripter.StatusReset, status())
	assert.Equal(t, entry.StartBuffer, a.Store.Buffer(a.Scripter.Ref(name)))
}

func TestModelPickerSwitchesTab(t *testing.T) {
	m, a := newTestModel(t, "Hello, Go")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	require.True(t, m.picker.IsOpen())
	assert.Contains(t, ansi.Strip(m.View()), "search:")

	m = press(t, m, runes("shell"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.picker.IsOpen())
	assert.Equal(t, "Shell environment", m.Active())
	onLoop(t, a, func() { assert.Equal(t, "Shell environment", a.Scripter.Active()) })

	// Esc closes without switching; typed keys never reach the buffer.
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlO}, runes("py"), tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, "Shell environment", m.Active())
	onLoop(t, a, func() { assert.False(t, a.Scripter.IsEditing("Shell environment")) })
}

func TestModelMessagesAndView(t *testing.T) {
	m, _ := newTestModel(t, "Hello, Go")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 30})
	m = next.(Model)
	next, _ = m.Update(statusMsg{Name: "Hello, Go", Status: scripter.StatusPaused})
	m = next.(Model)
	next, _ = m.Update(completeMsg{Name: "Hello, Go"})
	m = next.(Model)

	view := ansi.Strip(m.View())
	for _, name := range []string{"Hello, Go", "HTTP server", "Python greeting", "Shell environment"} {
		assert.Contains(t, view, name)
	}
	assert.Contains(t, view, "⏸ paused")
	assert.Contains(t, view, "Hello, Go finished")
	assert.Equal(t, 30, len(strings.Split(view, "\n")))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	_ = next
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
