package scripter

import (
	"time"
	"unicode/utf8"

	"codeberg.org/sigterm-de/scripter/internal/completions"
	"codeberg.org/sigterm-de/scripter/internal/editor"
	"codeberg.org/sigterm-de/scripter/internal/logging"
	"codeberg.org/sigterm-de/scripter/internal/take"
)

// start clears every lifecycle flag, puts the start buffer back and plays
// from step 0.
func (s *Scripter) start(st *runState) {
	st.restart = false
	st.autofill = false
	st.paused = false
	st.reset = false
	st.edit = false
	st.completed = false
	st.next = nil
	st.skipCompletions = false
	st.resumptionCaption = nil

	s.resetBuffer(st)
	s.notify(st)
	s.runStep(st, 0)
}

// shouldReject returns the interrupt for the first rejecting condition, in
// priority order, or nil when the step may run.
func (s *Scripter) shouldReject(st *runState, source string) *Interrupt {
	var r Reason
	switch {
	case !st.ready:
		r = ReasonNotReady
	case st.restart:
		r = ReasonRestarting
	case st.autofill:
		r = ReasonAutofill
	case st.paused:
		r = ReasonPause
	case st.reset:
		r = ReasonReset
	case st.edit:
		r = ReasonEdit
	default:
		return nil
	}
	return &Interrupt{Reason: r, Source: source}
}

// wait schedules fn after d. The wait is the script's only pending action
// until it resolves; cut resolves it early with cut=true.
func (s *Scripter) wait(st *runState, d time.Duration, fn func(cut bool)) {
	if st.shortCircuit != nil {
		logging.Log(logging.ERROR, st.name, "wait scheduled while another is pending; cutting the old one")
		s.cut(st)
	}
	d = s.scale(d)

	var (
		timer Timer
		done  bool
	)
	resolve := func(cut bool) {
		if done {
			return
		}
		done = true
		st.shortCircuit = nil
		st.currentPause = 0
		if cut && timer != nil {
			timer.Stop()
		}
		fn(cut)
	}
	st.currentPause = d
	st.shortCircuit = func() { resolve(true) }
	timer = s.sched.AfterFunc(d, func() { resolve(false) })
}

// scale applies the playback speed to a scripted duration.
func (s *Scripter) scale(d time.Duration) time.Duration {
	return time.Duration(float64(d) / s.opts.Speed)
}

// cut force-resolves the pending wait, if any. Safe to call when nothing is
// pending.
func (s *Scripter) cut(st *runState) {
	if fn := st.shortCircuit; fn != nil {
		st.shortCircuit = nil
		fn()
	}
}

// continueFrom dispatches a stored continuation.
func (s *Scripter) continueFrom(st *runState, p Pending) {
	switch v := p.(type) {
	case PendingChars:
		s.typeChars(st, v)
	case PendingPause:
		s.pauseStep(st, v)
	case PendingCompletion:
		c, ok := st.script.Steps[v.Step].(take.Completion)
		if !ok {
			s.runStep(st, v.Step+1)
			return
		}
		s.hop(st, v.Step, c, v.Settled)
	case PendingAdvance:
		s.runStep(st, v.Next)
	}
}

func (s *Scripter) runStep(st *runState, i int) {
	if intr := s.shouldReject(st, "step"); intr != nil {
		intr.Resume = PendingAdvance{Next: i}
		s.interrupted(st, intr)
		return
	}
	if i >= len(st.script.Steps) {
		s.finishRun(st)
		return
	}
	switch v := st.script.Steps[i].(type) {
	case take.Chars:
		s.typeChars(st, PendingChars{
			Step:            i,
			Remaining:       v.Sequence,
			Delay:           v.Delay(),
			SkipCompletions: v.SkipCompletions,
		})
	case take.Pause:
		s.pauseStep(st, PendingPause{Step: i, Amount: v.Delay()})
	case take.Completion:
		s.completion(st, i, v)
	case take.Caption:
		s.caption(st, v)
		s.advance(st, i+1)
	default:
		s.advance(st, i+1)
	}
}

// advance waits the inter-step gap, then runs step next.
func (s *Scripter) advance(st *runState, next int) {
	s.wait(st, s.opts.StepGap, func(bool) {
		s.runStep(st, next)
	})
}

// typeChars dispatches one character, waits, and recurses on the rest.
func (s *Scripter) typeChars(st *runState, p PendingChars) {
	if intr := s.shouldReject(st, "chars"); intr != nil {
		intr.Resume = p
		s.interrupted(st, intr)
		return
	}
	if p.Remaining == "" {
		s.advance(st, p.Step+1)
		return
	}
	r, size := utf8.DecodeRuneInString(p.Remaining)
	// Type fetches completions before the wait below exists.
	st.typingPause = s.scale(p.Delay)
	s.ed.Type(st.ref, r, editor.TypeOptions{
		Origin:          editor.Scripted,
		SkipCompletions: p.SkipCompletions || st.skipCompletions,
	})
	st.typingPause = 0
	p.Remaining = p.Remaining[size:]
	s.wait(st, p.Delay, func(bool) {
		s.typeChars(st, p)
	})
}

func (s *Scripter) pauseStep(st *runState, p PendingPause) {
	if intr := s.shouldReject(st, "pause"); intr != nil {
		intr.Resume = p
		s.interrupted(st, intr)
		return
	}
	s.wait(st, p.Amount, func(cut bool) {
		if cut {
			if intr := s.shouldReject(st, "pause"); intr != nil {
				intr.Resume = p
				s.interrupted(st, intr)
				return
			}
		}
		s.advance(st, p.Step+1)
	})
}

// completion locates c.Select in the live list, then in the take's cached
// table, and walks the highlight to it. When it is offered nowhere the
// Complete text is typed literally and the rest of the run stops fetching
// completions.
func (s *Scripter) completion(st *runState, i int, c take.Completion) {
	if intr := s.shouldReject(st, "completion"); intr != nil {
		intr.Resume = PendingCompletion{Step: i}
		s.interrupted(st, intr)
		return
	}

	ui := s.ed.Completions(st.ref)
	found := ui.Visible && completions.Find(ui.Items, c.Select) >= 0
	if !found {
		cached := st.script.Cached[s.ed.Cursor(st.ref)]
		if completions.Find(cached, c.Select) >= 0 {
			s.ed.ShowCompletions(st.ref, cached)
			found = true
		}
	}
	if !found {
		s.fallback(st, i, c)
		return
	}
	s.hop(st, i, c, false)
}

func (s *Scripter) fallback(st *runState, i int, c take.Completion) {
	logging.Logf(logging.DEBUG, st.name, "completion %q not offered; typing %q", c.Select, c.Complete)
	s.ed.ResetCompletionUI(st.ref)
	st.skipCompletions = true
	s.typeChars(st, PendingChars{
		Step:            i,
		Remaining:       c.Complete,
		Delay:           c.Delay(),
		SkipCompletions: true,
	})
}

// hop moves the highlight one entry towards c.Select per call. settled is
// true once the final selection wait has elapsed.
func (s *Scripter) hop(st *runState, i int, c take.Completion, settled bool) {
	if intr := s.shouldReject(st, "completion"); intr != nil {
		s.cutCompletion(st, i, c, settled, intr)
		return
	}

	ui := s.ed.Completions(st.ref)
	target := completions.Find(ui.Items, c.Select)
	if !ui.Visible || target < 0 {
		s.restoreCaption(st, c)
		s.fallback(st, i, c)
		return
	}

	moves := target - ui.Selected
	if moves == 0 {
		if !settled && c.FinalSelectionWait > 0 {
			s.showCursorCaption(st, c)
			s.wait(st, c.FinalSelectionWait, func(bool) {
				s.hop(st, i, c, true)
			})
			return
		}
		s.pick(st, i, c)
		return
	}

	dir := 1
	if moves < 0 {
		dir, moves = -1, -moves
	}
	s.ed.MoveSelection(st.ref, dir)
	s.showCursorCaption(st, c)

	d := c.Delay()
	last := moves == 1
	if last {
		d += c.FinalSelectionWait
	}
	s.wait(st, d, func(bool) {
		s.hop(st, i, c, last)
	})
}

// cutCompletion handles an interrupt in the middle of list navigation. A
// pause keeps the list and resumes the walk; anything else drops the list
// without selecting, leaving the buffer to the interrupt handler.
func (s *Scripter) cutCompletion(st *runState, i int, c take.Completion, settled bool, intr *Interrupt) {
	if intr.Reason == ReasonPause || intr.Reason == ReasonNotReady {
		intr.Resume = PendingCompletion{Step: i, Settled: settled}
	} else {
		s.ed.ResetCompletionUI(st.ref)
		intr.Resume = PendingAdvance{Next: i + 1}
	}
	s.restoreCaption(st, c)
	s.interrupted(st, intr)
}

func (s *Scripter) pick(st *runState, i int, c take.Completion) {
	s.restoreCaption(st, c)
	buf, cur := s.ed.Buffer(st.ref), s.ed.Cursor(st.ref)
	cur = min(max(cur, 0), len(buf))
	literal := buf[:cur] + c.Complete + buf[cur:]
	if !s.ed.SelectCompletion(st.ref) {
		s.fallback(st, i, c)
		return
	}
	if got := s.ed.Buffer(st.ref); got != literal {
		logging.Logf(logging.WARN, st.name, "selecting %q left %q, typing %q would leave %q; the filled buffer will not match",
			c.Select, got, c.Complete, literal)
	}
	s.advance(st, i+1)
}

// showCursorCaption positions c.CursorCaption beside the completion box.
func (s *Scripter) showCursorCaption(st *runState, c take.Completion) {
	if c.CursorCaption == "" {
		return
	}
	box := s.ed.CompletionBox(st.ref)
	selected := s.ed.Completions(st.ref).Selected
	var at editor.Rect
	switch c.CursorCaptionPlacement {
	case take.PlacementBottom:
		at = editor.Rect{X: box.X + c.MarginLeft, Y: box.Y + box.H + c.MarginTop}
	default:
		at = editor.Rect{X: box.X + box.W + c.MarginLeft, Y: box.Y + selected + c.MarginTop}
	}
	s.ed.ShowCaption(st.ref, editor.Caption{
		Text:      c.CursorCaption,
		Line:      -1,
		Placement: c.CursorCaptionPlacement,
		At:        at,
		Class:     c.AfterClass,
	})
}

// restoreCaption replaces a cursor caption with the caption step caption
// that was showing before the completion started, if any.
func (s *Scripter) restoreCaption(st *runState, c take.Completion) {
	if c.CursorCaption == "" {
		return
	}
	if rc := st.resumptionCaption; rc != nil {
		s.ed.ShowCaption(st.ref, *rc)
		return
	}
	s.ed.HideCaption(st.ref)
}

func (s *Scripter) caption(st *runState, c take.Caption) {
	if c.Hide {
		st.resumptionCaption = nil
		s.ed.HideCaption(st.ref)
		return
	}
	buf := s.ed.Buffer(st.ref)
	cp := editor.Caption{
		Text:    c.Text,
		Line:    editor.LastLine(buf),
		Padding: c.CompletionCaptionPadding,
	}
	st.resumptionCaption = &cp
	s.ed.ShowCaption(st.ref, cp)
}

// finishRun is reached when the steps are exhausted.
func (s *Scripter) finishRun(st *runState) {
	if s.opts.Loop {
		logging.Log(logging.DEBUG, st.name, "looping")
		s.start(st)
		return
	}
	logging.Log(logging.INFO, st.name, "completed")
	st.completed = true
	s.ed.SetOverlay(st.ref, true)
	s.notify(st)
	if s.opts.OnComplete != nil {
		s.opts.OnComplete(st.name)
	}
}

// interrupted applies the terminal effect of an interrupt.
func (s *Scripter) interrupted(st *runState, intr *Interrupt) {
	logging.Log(logging.DEBUG, st.name, intr.Error())
	switch intr.Reason {
	case ReasonPause, ReasonNotReady:
		st.next = intr.Resume
	case ReasonRestarting:
		s.start(st)
		return
	case ReasonReset:
		s.resetBuffer(st)
	case ReasonEdit:
		// The user owns the buffer.
	default:
		s.autofillBuffer(st)
	}
	s.notify(st)
}

func (s *Scripter) resetBuffer(st *runState) {
	s.ed.HideCaption(st.ref)
	s.ed.ResetCompletionUI(st.ref)
	s.ed.SetOverlay(st.ref, false)
	s.ed.SetBuffer(st.ref, st.script.StartBuffer)
	s.ed.SetCursor(st.ref, st.script.Cursor())
}

func (s *Scripter) autofillBuffer(st *runState) {
	st.resumptionCaption = nil
	s.ed.HideCaption(st.ref)
	s.ed.ResetCompletionUI(st.ref)
	s.ed.SetBuffer(st.ref, st.script.FilledBuffer)
}
