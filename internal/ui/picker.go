package ui

import (
	"strings"

	"codeberg.org/sigterm-de/scripter/internal/takes"
	tea "github.com/charmbracelet/bubbletea"
)

const pickerRows = 8

// TakePicker is a search box over the take library. Enter jumps to the
// highlighted take's tab.
type TakePicker struct {
	library *takes.Library
	query   string
	results []takes.Entry
	cursor  int
	open    bool
}

// NewTakePicker returns a closed picker over lib.
func NewTakePicker(lib *takes.Library) *TakePicker {
	return &TakePicker{library: lib}
}

// Open shows the picker with an empty query.
func (p *TakePicker) Open() {
	p.open = true
	p.query = ""
	p.refresh()
}

// Close hides the picker.
func (p *TakePicker) Close() { p.open = false }

// IsOpen reports whether the picker takes keyboard input.
func (p *TakePicker) IsOpen() bool { return p.open }

func (p *TakePicker) refresh() {
	p.results = p.library.Search(p.query)
	p.cursor = 0
}

// HandleKey consumes a key while open. It returns the chosen take name when
// the user confirms a row.
func (p *TakePicker) HandleKey(msg tea.KeyMsg) (chosen string, ok bool) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlO:
		p.Close()
	case tea.KeyEnter:
		if len(p.results) > 0 {
			chosen, ok = p.results[p.cursor].Name, true
		}
		p.Close()
	case tea.KeyUp, tea.KeyCtrlK:
		if p.cursor > 0 {
			p.cursor--
		}
	case tea.KeyDown, tea.KeyCtrlJ:
		if p.cursor < len(p.results)-1 {
			p.cursor++
		}
	case tea.KeyBackspace:
		if r := []rune(p.query); len(r) > 0 {
			p.query = string(r[:len(r)-1])
			p.refresh()
		}
	case tea.KeySpace:
		p.query += " "
		p.refresh()
	case tea.KeyRunes:
		p.query += string(msg.Runes)
		p.refresh()
	}
	return chosen, ok
}

// Render draws the picker box.
func (p *TakePicker) Render(st Styles, width int) string {
	var b strings.Builder
	b.WriteString("search: " + p.query + "▏\n")
	if len(p.results) == 0 {
		b.WriteString("  no matching takes")
	}
	start := max(0, p.cursor-pickerRows+1)
	for i := start; i < min(len(p.results), start+pickerRows); i++ {
		e := p.results[i]
		line := e.Name
		if e.Description != "" {
			line += "  " + e.Description
		}
		if i == p.cursor {
			b.WriteString(st.PickerMatch.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		if i < min(len(p.results), start+pickerRows)-1 {
			b.WriteString("\n")
		}
	}
	return st.Picker.Width(max(width-4, 20)).Render(b.String())
}
