// Package take defines scripted typing sessions ("takes"): an ordered list of
// steps plus the buffer the editor starts from and the fully typed buffer
// used when playback is abandoned.
package take

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"codeberg.org/sigterm-de/scripter/internal/completions"
)

// DefaultDelay is used by every step whose amount is zero.
const DefaultDelay = 100 * time.Millisecond

// ErrNoSteps is returned by Validate for a take without steps.
var ErrNoSteps = errors.New("take: no steps")

// Placement orients a cursor caption relative to the completion box.
type Placement int

const (
	PlacementRight Placement = iota
	PlacementBottom
)

func (p Placement) String() string {
	switch p {
	case PlacementBottom:
		return "bottom"
	default:
		return "right"
	}
}

// ParsePlacement maps "right"/"bottom" (case-insensitive) to a Placement.
// Empty input is PlacementRight.
func ParsePlacement(s string) (Placement, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "right":
		return PlacementRight, nil
	case "bottom":
		return PlacementBottom, nil
	}
	return PlacementRight, fmt.Errorf("take: unknown caption placement %q", s)
}

// StepKind names the variant of a Step.
type StepKind int

const (
	KindChars StepKind = iota
	KindPause
	KindCompletion
	KindCaption
)

func (k StepKind) String() string {
	switch k {
	case KindChars:
		return "chars"
	case KindPause:
		return "pause"
	case KindCompletion:
		return "completion"
	case KindCaption:
		return "caption"
	}
	return "unknown"
}

// Step is one of Chars, Pause, Completion or Caption.
type Step interface {
	Kind() StepKind
	step()
}

// Chars types Sequence one character at a time.
type Chars struct {
	Sequence        string
	Amount          time.Duration
	SkipCompletions bool
}

// Pause waits before the next step.
type Pause struct {
	Amount time.Duration
}

// Completion walks the completion list down to the candidate displayed as
// Select and picks it. Complete is typed literally when Select never shows up.
type Completion struct {
	Select                 string
	Complete               string
	FinalSelectionWait     time.Duration
	CursorCaption          string
	CursorCaptionPlacement Placement
	MarginTop              int
	MarginLeft             int
	AfterClass             string
	Amount                 time.Duration
}

// Caption shows or hides a callout attached to the last line of the buffer.
type Caption struct {
	Text                     string
	Hide                     bool
	CompletionCaptionPadding bool
}

func (Chars) Kind() StepKind      { return KindChars }
func (Pause) Kind() StepKind      { return KindPause }
func (Completion) Kind() StepKind { return KindCompletion }
func (Caption) Kind() StepKind    { return KindCaption }

func (Chars) step()      {}
func (Pause) step()      {}
func (Completion) step() {}
func (Caption) step()    {}

// Delay returns Amount, or DefaultDelay when unset.
func (c Chars) Delay() time.Duration { return orDefault(c.Amount) }

// Delay returns Amount, or DefaultDelay when unset.
func (p Pause) Delay() time.Duration { return orDefault(p.Amount) }

// Delay returns the per-hop delay, or DefaultDelay when unset.
func (c Completion) Delay() time.Duration { return orDefault(c.Amount) }

func orDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultDelay
	}
	return d
}

// Script is an immutable, author-provided take.
type Script struct {
	Name          string
	Description   string
	Tags          []string
	Steps         []Step
	StartBuffer   string
	FilledBuffer  string
	InitialCursor *int

	// Cached is consulted when a Completion's Select is missing from the live
	// list. Keyed by cursor byte offset.
	Cached map[int][]completions.Candidate
}

// Cursor returns the starting cursor offset: InitialCursor, or the end of
// StartBuffer.
func (s Script) Cursor() int {
	if s.InitialCursor != nil {
		return *s.InitialCursor
	}
	return len(s.StartBuffer)
}

// Fill returns the buffer obtained by applying every buffer-changing step
// literally at the cursor, starting from StartBuffer.
func Fill(s Script) string {
	buf := s.StartBuffer
	cur := min(max(s.Cursor(), 0), len(buf))
	insert := func(text string) {
		buf = buf[:cur] + text + buf[cur:]
		cur += len(text)
	}
	for _, st := range s.Steps {
		switch v := st.(type) {
		case Chars:
			insert(v.Sequence)
		case Completion:
			insert(v.Complete)
		}
	}
	return buf
}

// Normalize fills FilledBuffer when the author left it empty.
func Normalize(s *Script) {
	if s.FilledBuffer == "" {
		s.FilledBuffer = Fill(*s)
	}
}

// Validate reports the first structural problem in s.
func Validate(s Script) error {
	if len(s.Steps) == 0 {
		return ErrNoSteps
	}
	if s.InitialCursor != nil && (*s.InitialCursor < 0 || *s.InitialCursor > len(s.StartBuffer)) {
		return fmt.Errorf("take: initial cursor %d outside start buffer (len %d)", *s.InitialCursor, len(s.StartBuffer))
	}
	if c := s.InitialCursor; c != nil && *c < len(s.StartBuffer) && !utf8.RuneStart(s.StartBuffer[*c]) {
		return fmt.Errorf("take: initial cursor %d splits a character", *c)
	}
	for i, st := range s.Steps {
		switch v := st.(type) {
		case Chars:
			if v.Sequence == "" {
				return fmt.Errorf("take: step %d: empty chars sequence", i)
			}
		case Completion:
			if v.Select == "" {
				return fmt.Errorf("take: step %d: completion without select", i)
			}
			if v.Complete == "" {
				return fmt.Errorf("take: step %d: completion without complete", i)
			}
		case Caption:
			if !v.Hide && strings.TrimSpace(v.Text) == "" {
				return fmt.Errorf("take: step %d: empty caption", i)
			}
		case Pause:
		case nil:
			return fmt.Errorf("take: step %d: nil step", i)
		}
	}
	if want := Fill(s); s.FilledBuffer != want {
		return fmt.Errorf("take: filled buffer does not match the typed steps (want %d bytes, have %d)", len(want), len(s.FilledBuffer))
	}
	return nil
}
