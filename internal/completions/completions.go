// Package completions provides the ranked completion candidates the editor
// shows while text is typed, either from a local symbol catalog or from a
// table cached inside a take.
package completions

import (
	"context"
	"errors"
)

// ErrTooLarge is returned when the buffer exceeds the service's size limit.
// Callers treat it exactly like any other fetch failure.
var ErrTooLarge = errors.New("completions: buffer too large")

// Candidate is a single completion entry.
type Candidate struct {
	Display  string `json:"display" yaml:"display" plist:"display"`
	Insert   string `json:"insert,omitempty" yaml:"insert,omitempty" plist:"insert,omitempty"`
	Hint     string `json:"hint,omitempty" yaml:"hint,omitempty" plist:"hint,omitempty"`
	SymbolID string `json:"symbol_id,omitempty" yaml:"symbol_id,omitempty" plist:"symbol_id,omitempty"`
}

// InsertText returns the text that replaces the identifier prefix when the
// candidate is selected. Falls back to Display when Insert is empty.
func (c Candidate) InsertText() string {
	if c.Insert != "" {
		return c.Insert
	}
	return c.Display
}

// Service returns an ordered list of candidates for the given buffer and
// cursor byte offset.
type Service interface {
	Complete(ctx context.Context, text string, cursor int) ([]Candidate, error)
}

// ServiceFunc adapts a plain function to the Service interface.
type ServiceFunc func(ctx context.Context, text string, cursor int) ([]Candidate, error)

// Complete implements Service.
func (f ServiceFunc) Complete(ctx context.Context, text string, cursor int) ([]Candidate, error) {
	return f(ctx, text, cursor)
}

// Find returns the index of the candidate whose Display equals display, or -1.
func Find(list []Candidate, display string) int {
	for i, c := range list {
		if c.Display == display {
			return i
		}
	}
	return -1
}

// Prefix returns the identifier prefix that ends at cursor and the byte offset
// where it starts. Identifier characters are ASCII letters, digits and '_'.
func Prefix(text string, cursor int) (prefix string, start int) {
	if cursor > len(text) {
		cursor = len(text)
	}
	if cursor < 0 {
		cursor = 0
	}
	start = cursor
	for start > 0 && isIdent(text[start-1]) {
		start--
	}
	return text[start:cursor], start
}

func isIdent(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
