package ui

import (
	"fmt"
	"strings"
	"time"

	"codeberg.org/sigterm-de/scripter/internal/scripter"
	"github.com/charmbracelet/lipgloss"
)

const statusIdleText = "^P pause  ^R restart  ^X reset  ^F finish  ^O takes  tab switch  ^C quit"

// revertDelay is how long a status message stays before reverting to the
// idle hint.
const revertDelay = 5 * time.Second

type messageKind int

const (
	messageInfo messageKind = iota
	messageError
)

// StatusBar shows the active take's lifecycle state on the left and either a
// transient message or the key hint on the right.
type StatusBar struct {
	kind    messageKind
	text    string
	shownAt time.Time
	logPath string

	styles Styles
	now    func() time.Time
}

// NewStatusBar returns a status bar showing the key hint.
func NewStatusBar(styles Styles, logPath string) *StatusBar {
	return &StatusBar{styles: styles, logPath: logPath, now: time.Now}
}

// ShowError displays an error message until it expires.
func (s *StatusBar) ShowError(message string) {
	text := message
	if s.logPath != "" {
		text += "  (log: " + s.logPath + ")"
	}
	s.set(messageError, text)
}

// ShowInfo displays an informational message until it expires.
func (s *StatusBar) ShowInfo(message string) {
	s.set(messageInfo, message)
}

// Clear immediately reverts the status bar to the idle hint.
func (s *StatusBar) Clear() {
	s.text = ""
}

func (s *StatusBar) set(kind messageKind, text string) {
	s.kind = kind
	s.text = text
	s.shownAt = s.now()
}

// Expired reports whether a message is showing past its revert delay.
func (s *StatusBar) Expired() bool {
	return s.text != "" && s.now().Sub(s.shownAt) >= revertDelay
}

// Render draws the bar for the active take.
func (s *StatusBar) Render(width int, name string, st scripter.Status, pause time.Duration, lang string) string {
	left := fmt.Sprintf(" %s %s", statusGlyph(st), st)
	if st == scripter.StatusRunning && pause > 0 {
		left += fmt.Sprintf(" (%s)", pause.Round(time.Millisecond))
	}
	if lang != "" {
		left += "  " + lang
	}
	left = s.styles.StatusState.Render(left) + " " + name

	right := statusIdleText
	style := s.styles.StatusHint
	if s.text != "" && !s.Expired() {
		right = s.text
		if s.kind == messageError {
			style = s.styles.StatusError
		} else {
			style = s.styles.StatusInfo
		}
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 1
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + style.Render(right)
}

func statusGlyph(st scripter.Status) string {
	switch st {
	case scripter.StatusRunning:
		return "▶"
	case scripter.StatusPaused:
		return "⏸"
	case scripter.StatusCompleted:
		return "✓"
	case scripter.StatusEditing:
		return "✎"
	case scripter.StatusReset:
		return "↺"
	}
	return "·"
}
