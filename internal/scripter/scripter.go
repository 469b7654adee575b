// Package scripter plays takes against an editor store. Each script name has
// its own independent state machine; all of them share one single-threaded
// scheduler and every wait can be cut short by pause, restart, finish or
// reset.
//
// A Scripter is not safe for concurrent use. Call it only from the goroutine
// that runs the Scheduler's callbacks.
package scripter

import (
	"time"

	"codeberg.org/sigterm-de/scripter/internal/completions"
	"codeberg.org/sigterm-de/scripter/internal/editor"
	"codeberg.org/sigterm-de/scripter/internal/logging"
	"codeberg.org/sigterm-de/scripter/internal/take"
)

const (
	// DefaultDebounce absorbs rapid successive tab switches.
	DefaultDebounce = 300 * time.Millisecond

	// DefaultStepGap separates consecutive steps.
	DefaultStepGap = 20 * time.Millisecond
)

// Timer is a pending scheduled callback.
type Timer interface {
	Stop()
}

// Scheduler runs fn after d on the scripter's goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Editor is the slice of the editor store the engine drives.
type Editor interface {
	Buffer(editor.Ref) string
	SetBuffer(editor.Ref, string)
	Cursor(editor.Ref) int
	SetCursor(editor.Ref, int)
	Type(editor.Ref, rune, editor.TypeOptions)
	Completions(editor.Ref) editor.CompletionUI
	ShowCompletions(editor.Ref, []completions.Candidate)
	MoveSelection(editor.Ref, int)
	SelectCompletion(editor.Ref) bool
	ResetCompletionUI(editor.Ref)
	CompletionBox(editor.Ref) editor.Rect
	ShowCaption(editor.Ref, editor.Caption)
	HideCaption(editor.Ref)
	SetOverlay(editor.Ref, bool)
	Drop(editor.Ref)
}

// Options configures a Scripter.
type Options struct {
	// Loop restarts a take from its start buffer when it runs out of steps
	// instead of completing.
	Loop bool

	Debounce time.Duration
	StepGap  time.Duration

	// Speed divides every delay; values <= 0 mean 1.
	Speed float64

	// OnComplete is called when a non-looping take finishes its last step.
	OnComplete func(name string)

	// OnStatus is called after every lifecycle transition.
	OnStatus func(name string, status Status)
}

// runState is the per-script state machine.
type runState struct {
	name   string
	script take.Script
	ref    editor.Ref

	ready     bool
	restart   bool
	autofill  bool
	paused    bool
	reset     bool
	edit      bool
	completed bool

	next              Pending
	shortCircuit      func()
	currentPause      time.Duration
	typingPause       time.Duration // wait after the char being typed
	resumptionCaption *editor.Caption
	skipCompletions   bool
}

func (st *runState) status() Status {
	switch {
	case !st.ready:
		return StatusNotReady
	case st.edit || st.autofill:
		return StatusEditing
	case st.reset:
		return StatusReset
	case st.completed:
		return StatusCompleted
	case st.paused:
		return StatusPaused
	case st.shortCircuit != nil:
		return StatusRunning
	}
	return StatusIdle
}

// Scripter owns the registry of script states for one editor instance.
type Scripter struct {
	editorID string
	ed       Editor
	sched    Scheduler
	opts     Options

	states    map[string]*runState
	active    string
	switchSeq uint64
	debounce  Timer
}

// New returns a Scripter bound to one editor instance.
func New(editorID string, ed Editor, sched Scheduler, opts Options) *Scripter {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.StepGap <= 0 {
		opts.StepGap = DefaultStepGap
	}
	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	return &Scripter{
		editorID: editorID,
		ed:       ed,
		sched:    sched,
		opts:     opts,
		states:   make(map[string]*runState),
	}
}

// EditorID returns the editor instance the scripter drives.
func (s *Scripter) EditorID() string { return s.editorID }

// Register adds a script under its name, or replaces the take of an existing
// one; the replacement is used from the next start.
func (s *Scripter) Register(sc take.Script) {
	if st, ok := s.states[sc.Name]; ok {
		st.script = sc
		return
	}
	s.states[sc.Name] = &runState{
		name:   sc.Name,
		script: sc,
		ref:    editor.Ref{EditorID: s.editorID, Script: sc.Name},
	}
	logging.Log(logging.DEBUG, sc.Name, "registered")
}

// SetScripts syncs the registry with the known takes: new names are
// registered, names no longer present are dropped together with their
// editor files.
func (s *Scripter) SetScripts(scripts []take.Script) {
	known := make(map[string]bool, len(scripts))
	for _, sc := range scripts {
		known[sc.Name] = true
		s.Register(sc)
	}
	for name, st := range s.states {
		if known[name] {
			continue
		}
		st.ready = false
		s.cut(st)
		st.next = nil
		delete(s.states, name)
		s.ed.Drop(st.ref)
		if s.active == name {
			s.active = ""
		}
		logging.Log(logging.DEBUG, name, "dropped")
	}
}

// Names returns the registered script names in no particular order.
func (s *Scripter) Names() []string {
	out := make([]string, 0, len(s.states))
	for name := range s.states {
		out = append(out, name)
	}
	return out
}

// Ref returns the editor file a script plays into.
func (s *Scripter) Ref(name string) editor.Ref {
	if name == "" {
		name = s.active
	}
	return editor.Ref{EditorID: s.editorID, Script: name}
}

// Active returns the active script name.
func (s *Scripter) Active() string { return s.active }

// lookup resolves name ("" means the active script).
func (s *Scripter) lookup(name string) *runState {
	if name == "" {
		name = s.active
	}
	st, ok := s.states[name]
	if !ok {
		logging.Log(logging.DEBUG, name, "unknown script")
		return nil
	}
	return st
}

// Ready marks the script's editor as mounted.
func (s *Scripter) Ready(name string) {
	if st := s.lookup(name); st != nil {
		st.ready = true
		s.notify(st)
	}
}

// SetActive switches the active script: the previous one is paused, the new
// one is marked ready and resumed (or started) after the debounce window.
func (s *Scripter) SetActive(name string) {
	if name == s.active {
		return
	}
	if prev := s.states[s.active]; prev != nil {
		s.Pause(prev.name)
	}
	s.active = name

	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	st := s.states[name]
	if st == nil {
		return
	}
	st.ready = true
	s.notify(st)

	s.switchSeq++
	seq := s.switchSeq
	s.debounce = s.sched.AfterFunc(s.opts.Debounce, func() {
		if seq != s.switchSeq || s.active != name {
			return
		}
		s.debounce = nil
		s.Resume(name)
	})
}

// Start plays the script from its first step. A script already in flight is
// restarted.
func (s *Scripter) Start(name string) {
	st := s.lookup(name)
	if st == nil {
		return
	}
	if st.shortCircuit != nil {
		s.Restart(st.name)
		return
	}
	logging.Log(logging.INFO, st.name, "start")
	s.start(st)
}

// Pause cuts the pending wait and stores a continuation for Resume.
func (s *Scripter) Pause(name string) {
	st := s.lookup(name)
	if st == nil || st.paused || st.completed || st.edit || st.autofill || st.reset {
		return
	}
	logging.Log(logging.INFO, st.name, "pause")
	st.paused = true
	s.cut(st)
	s.ed.HideCaption(st.ref)
	s.notify(st)
}

// Resume continues exactly where the script was paused, restoring a caption
// that was visible at that moment. Without a stored continuation the script
// starts from the beginning. Editing, reset and completed scripts are left
// alone.
func (s *Scripter) Resume(name string) {
	st := s.lookup(name)
	if st == nil || st.completed || st.edit || st.autofill || st.reset {
		return
	}
	if st.shortCircuit != nil {
		return
	}
	st.paused = false
	if n := st.next; n != nil {
		logging.Logf(logging.INFO, st.name, "resume at step %d", n.StepIndex())
		st.next = nil
		if c := st.resumptionCaption; c != nil {
			s.ed.ShowCaption(st.ref, *c)
		}
		s.notify(st)
		s.continueFrom(st, n)
		return
	}
	logging.Log(logging.INFO, st.name, "resume without continuation; starting")
	s.start(st)
}

// Restart resets the buffer and plays from the first step, also out of
// editing or autofilled mode.
func (s *Scripter) Restart(name string) {
	st := s.lookup(name)
	if st == nil {
		return
	}
	logging.Log(logging.INFO, st.name, "restart")
	st.restart = true
	st.next = nil
	if st.shortCircuit != nil {
		s.cut(st)
		return
	}
	s.start(st)
}

// Finish abandons scripting: the buffer snaps to the filled buffer and real
// user input owns the editor until Restart.
func (s *Scripter) Finish(name string) {
	st := s.lookup(name)
	if st == nil || st.edit {
		return
	}
	logging.Log(logging.INFO, st.name, "finish")
	st.autofill = true
	st.edit = true
	st.next = nil
	if st.shortCircuit != nil {
		s.cut(st)
		return
	}
	s.autofillBuffer(st)
	s.notify(st)
}

// Reset stops scripting and puts the start buffer back. It does not restart.
func (s *Scripter) Reset(name string) {
	st := s.lookup(name)
	if st == nil {
		return
	}
	logging.Log(logging.INFO, st.name, "reset")
	st.reset = true
	st.restart = false
	st.autofill = false
	st.edit = false
	st.paused = false
	st.completed = false
	st.next = nil
	st.resumptionCaption = nil
	if st.shortCircuit != nil {
		s.cut(st)
		return
	}
	s.resetBuffer(st)
	s.notify(st)
}

// Status returns the composite lifecycle state.
func (s *Scripter) Status(name string) Status {
	if st := s.lookup(name); st != nil {
		return st.status()
	}
	return StatusNotReady
}

// IsPaused reports whether the script is paused.
func (s *Scripter) IsPaused(name string) bool {
	st := s.lookup(name)
	return st != nil && st.paused
}

// IsReset reports whether the script was reset.
func (s *Scripter) IsReset(name string) bool {
	st := s.lookup(name)
	return st != nil && st.reset
}

// IsAutofilled reports whether the buffer was snapped to the filled buffer.
func (s *Scripter) IsAutofilled(name string) bool {
	st := s.lookup(name)
	return st != nil && st.autofill
}

// IsEditing reports whether real user input owns the editor.
func (s *Scripter) IsEditing(name string) bool {
	st := s.lookup(name)
	return st != nil && st.edit
}

// IsScriptCompleted reports whether the take ran through all its steps.
func (s *Scripter) IsScriptCompleted(name string) bool {
	st := s.lookup(name)
	return st != nil && st.completed
}

// SkipsCompletions reports whether the current run stopped fetching
// completions after a failed lookup.
func (s *Scripter) SkipsCompletions(name string) bool {
	st := s.lookup(name)
	return st != nil && st.skipCompletions
}

// CurrentPause returns the duration of the pending wait, or zero.
func (s *Scripter) CurrentPause(name string) time.Duration {
	if st := s.lookup(name); st != nil {
		return st.currentPause
	}
	return 0
}

// Continuation returns the stored resume point, or nil.
func (s *Scripter) Continuation(name string) Pending {
	if st := s.lookup(name); st != nil {
		return st.next
	}
	return nil
}

// FetchBudget is the completion fetch timeout for a file: while a take plays,
// the wait that follows the character being typed, or else the pending wait;
// zero (store default) otherwise.
func (s *Scripter) FetchBudget(ref editor.Ref) time.Duration {
	st, ok := s.states[ref.Script]
	switch {
	case !ok || st.edit:
		return 0
	case st.typingPause > 0:
		return st.typingPause
	case st.shortCircuit != nil:
		return st.currentPause
	}
	return 0
}

func (s *Scripter) notify(st *runState) {
	if s.opts.OnStatus != nil {
		s.opts.OnStatus(st.name, st.status())
	}
}
