// Package ui is the terminal player: one tab per take, the take's buffer with
// its completion popup and caption, and a status line. Keys drive the
// playback engine; anything that is not a binding is real user input and
// abandons the take to the editor.
package ui

import (
	"strings"
	"time"

	"codeberg.org/sigterm-de/scripter/internal/app"
	"codeberg.org/sigterm-de/scripter/internal/editor"
	"codeberg.org/sigterm-de/scripter/internal/scripter"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const tickInterval = 500 * time.Millisecond

type statusMsg struct {
	Name   string
	Status scripter.Status
	Pause  time.Duration
}

type fileMsg struct {
	Event editor.Event
	Pause time.Duration
}

type completeMsg struct{ Name string }

type tickMsg time.Time

type takeState struct {
	Status scripter.Status
	Pause  time.Duration
}

// Model is the bubbletea model of the player. It never touches the scripter
// directly: engine calls are posted to the app loop and results come back as
// messages.
type Model struct {
	app    *app.App
	prefs  app.AppPreferences
	styles Styles

	names  []string
	active int
	states map[string]takeState

	status *StatusBar
	picker *TakePicker

	width, height int
}

// NewModel returns a player over every take of a.Library.
func NewModel(a *app.App, prefs app.AppPreferences, logPath string) Model {
	styles := NewStyles(prefs)
	m := Model{
		app:    a,
		prefs:  prefs,
		styles: styles,
		states: make(map[string]takeState),
		status: NewStatusBar(styles, logPath),
		picker: NewTakePicker(a.Library),
		width:  80,
		height: 24,
	}
	for _, e := range a.Library.All() {
		m.names = append(m.names, e.Name)
		m.states[e.Name] = takeState{Status: scripter.StatusNotReady}
	}
	for i, name := range m.names {
		if name == prefs.StartTake {
			m.active = i
		}
	}
	return m
}

// Init activates the start tab; the scripter begins playing it once the
// debounce window has passed.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.activate(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Active returns the active take name.
func (m Model) Active() string {
	if len(m.names) == 0 {
		return ""
	}
	return m.names[m.active]
}

func (m Model) activate() tea.Cmd {
	name := m.Active()
	if name == "" {
		return nil
	}
	a := m.app
	return func() tea.Msg {
		a.Do(func() { a.Scripter.SetActive(name) })
		return nil
	}
}

// engine posts fn with the active take name to the loop.
func (m Model) engine(fn func(s *scripter.Scripter, name string)) {
	name := m.Active()
	if name == "" {
		return
	}
	s := m.app.Scripter
	if !m.app.Do(func() { fn(s, name) }) {
		m.status.ShowError("playback loop has stopped")
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		if m.status.Expired() {
			m.status.Clear()
		}
		return m, tick()

	case statusMsg:
		m.states[msg.Name] = takeState{Status: msg.Status, Pause: msg.Pause}
		return m, nil

	case fileMsg:
		if st, ok := m.states[msg.Event.Ref.Script]; ok {
			st.Pause = msg.Pause
			m.states[msg.Event.Ref.Script] = st
		}
		return m, nil

	case completeMsg:
		m.status.ShowInfo(msg.Name + " finished")
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.picker.IsOpen() {
		if name, ok := m.picker.HandleKey(msg); ok {
			return m.switchTo(name)
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		return m.step(1)
	case "shift+tab":
		return m.step(-1)
	case "ctrl+o":
		m.picker.Open()
		return m, nil
	case "ctrl+p":
		m.engine(func(s *scripter.Scripter, name string) {
			if s.IsPaused(name) {
				s.Resume(name)
			} else {
				s.Pause(name)
			}
		})
		return m, nil
	case "ctrl+r":
		m.engine(func(s *scripter.Scripter, name string) { s.Restart(name) })
		return m, nil
	case "ctrl+x":
		m.engine(func(s *scripter.Scripter, name string) { s.Reset(name) })
		return m, nil
	case "ctrl+f":
		m.engine(func(s *scripter.Scripter, name string) { s.Finish(name) })
		return m, nil
	}

	m.userInput(msg)
	return m, nil
}

// userInput routes a keystroke through the store as real input.
func (m Model) userInput(msg tea.KeyMsg) {
	var runes []rune
	backspace := false
	switch msg.Type {
	case tea.KeyEnter:
		runes = []rune{'\n'}
	case tea.KeySpace:
		runes = []rune{' '}
	case tea.KeyBackspace:
		backspace = true
	case tea.KeyRunes:
		if msg.Alt {
			return
		}
		runes = msg.Runes
	default:
		return
	}

	store := m.app.Store
	m.engine(func(s *scripter.Scripter, name string) {
		ref := s.Ref(name)
		if backspace {
			store.Backspace(ref)
			return
		}
		for _, r := range runes {
			store.Type(ref, r, editor.TypeOptions{Origin: editor.User})
		}
	})
}

func (m Model) step(delta int) (tea.Model, tea.Cmd) {
	if len(m.names) == 0 {
		return m, nil
	}
	m.active = (m.active + delta + len(m.names)) % len(m.names)
	return m, m.activate()
}

func (m Model) switchTo(name string) (tea.Model, tea.Cmd) {
	for i, n := range m.names {
		if n == name && i != m.active {
			m.active = i
			return m, m.activate()
		}
	}
	return m, nil
}

func (m Model) View() string {
	if len(m.names) == 0 {
		return "no takes found\n"
	}
	name := m.Active()
	file := m.app.Store.Snapshot(m.app.Scripter.Ref(name))

	tabs := m.renderTabs()
	var picker string
	if m.picker.IsOpen() {
		picker = m.picker.Render(m.styles, m.width)
	}

	bodyHeight := m.height - lipgloss.Height(tabs) - 2
	if picker != "" {
		bodyHeight -= lipgloss.Height(picker)
	}
	body := renderFile(file, m.styles, viewOptions{
		LineNumbers: m.prefs.ShowLineNumbers,
		Height:      max(bodyHeight, 1),
	})

	lang := ""
	if m.prefs.SyntaxAutoDetect {
		_, lang = Detect(file.Buffer)
	}
	st := m.states[name]
	bar := m.status.Render(m.width, name, st.Status, st.Pause, lang)

	parts := []string{tabs}
	if picker != "" {
		parts = append(parts, picker)
	}
	parts = append(parts, body)
	view := strings.Join(parts, "\n")

	// Pin the status line to the bottom row.
	if gap := m.height - lipgloss.Height(view) - 1; gap > 0 {
		view += strings.Repeat("\n", gap)
	}
	return view + "\n" + bar
}

func (m Model) renderTabs() string {
	tabs := make([]string, len(m.names))
	for i, name := range m.names {
		label := statusGlyph(m.states[name].Status) + " " + name
		if i == m.active {
			tabs[i] = m.styles.ActiveTab.Render(label)
		} else {
			tabs[i] = m.styles.Tab.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}
