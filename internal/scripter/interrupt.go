package scripter

import (
	"fmt"
	"time"
)

// Reason tags why a step refused to run.
type Reason int

const (
	ReasonNotReady Reason = iota
	ReasonRestarting
	ReasonAutofill
	ReasonPause
	ReasonReset
	ReasonEdit
	ReasonUnknown
)

func (r Reason) String() string {
	switch r {
	case ReasonNotReady:
		return "NOT_READY"
	case ReasonRestarting:
		return "RESTARTING"
	case ReasonAutofill:
		return "AUTOFILL"
	case ReasonPause:
		return "PAUSE"
	case ReasonReset:
		return "RESET"
	case ReasonEdit:
		return "EDIT"
	}
	return "UNKNOWN"
}

// Interrupt is the control-flow value a step produces instead of running.
// Resume captures exactly where playback stopped.
type Interrupt struct {
	Reason Reason
	Source string
	Resume Pending
}

func (i *Interrupt) Error() string {
	return fmt.Sprintf("scripter: %s step interrupted: %s", i.Source, i.Reason)
}

// Pending is a resume point. It is one of PendingChars, PendingPause,
// PendingCompletion or PendingAdvance.
type Pending interface {
	// StepIndex is the index of the step the continuation belongs to.
	StepIndex() int
	pending()
}

// PendingChars resumes typing Remaining. Completion fallbacks resume as
// PendingChars too.
type PendingChars struct {
	Step            int
	Remaining       string
	Delay           time.Duration
	SkipCompletions bool
}

// PendingPause re-enters a pause step.
type PendingPause struct {
	Step   int
	Amount time.Duration
}

// PendingCompletion resumes walking the completion list from its current
// highlight.
type PendingCompletion struct {
	Step    int
	Settled bool
}

// PendingAdvance continues with step Next.
type PendingAdvance struct {
	Next int
}

func (p PendingChars) StepIndex() int      { return p.Step }
func (p PendingPause) StepIndex() int      { return p.Step }
func (p PendingCompletion) StepIndex() int { return p.Step }
func (p PendingAdvance) StepIndex() int    { return p.Next }

func (PendingChars) pending()      {}
func (PendingPause) pending()      {}
func (PendingCompletion) pending() {}
func (PendingAdvance) pending()    {}

// Status is the composite lifecycle state of a script, derived from its flags.
type Status int

const (
	StatusNotReady Status = iota
	StatusIdle
	StatusRunning
	StatusPaused
	StatusEditing
	StatusReset
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusNotReady:
		return "not ready"
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusEditing:
		return "editing"
	case StatusReset:
		return "reset"
	case StatusCompleted:
		return "completed"
	}
	return "unknown"
}
