package editor

import (
	"context"
	"errors"
	"testing"
	"time"

	"codeberg.org/sigterm-de/scripter/internal/completions"
	"codeberg.org/sigterm-de/scripter/internal/take"
)

var ref = Ref{EditorID: "ed", Script: "hello"}

func staticService(items ...string) completions.Service {
	return completions.ServiceFunc(func(ctx context.Context, text string, cursor int) ([]completions.Candidate, error) {
		out := make([]completions.Candidate, len(items))
		for i, it := range items {
			out[i] = completions.Candidate{Display: it}
		}
		return out, nil
	})
}

func TestTypeInsertsAtCursorAndFetches(t *testing.T) {
	s := NewStore(staticService("abc", "abcd"))
	s.SetBuffer(ref, "xy")
	s.SetCursor(ref, 1)
	s.Type(ref, 'a', TypeOptions{})

	if got := s.Buffer(ref); got != "xay" {
		t.Fatalf("Buffer = %q; want xay", got)
	}
	if got := s.Cursor(ref); got != 2 {
		t.Fatalf("Cursor = %d; want 2", got)
	}
	ui := s.Completions(ref)
	if !ui.Visible || len(ui.Items) != 2 || ui.Selected != 0 {
		t.Fatalf("Completions = %+v", ui)
	}
}

func TestTypeMultibyte(t *testing.T) {
	s := NewStore(nil)
	s.Type(ref, 'é', TypeOptions{})
	s.Type(ref, 'x', TypeOptions{})
	if got := s.Buffer(ref); got != "éx" {
		t.Fatalf("Buffer = %q", got)
	}
	if got := s.Cursor(ref); got != 3 {
		t.Fatalf("Cursor = %d; want 3", got)
	}
}

func TestTypeSkipCompletions(t *testing.T) {
	calls := 0
	s := NewStore(completions.ServiceFunc(func(context.Context, string, int) ([]completions.Candidate, error) {
		calls++
		return nil, nil
	}))
	s.Type(ref, 'a', TypeOptions{SkipCompletions: true})
	if calls != 0 {
		t.Fatalf("service called %d times; want 0", calls)
	}
	s.Type(ref, 'b', TypeOptions{})
	if calls != 1 {
		t.Fatalf("service called %d times; want 1", calls)
	}
}

func TestFetchFailureClearsList(t *testing.T) {
	fail := false
	s := NewStore(completions.ServiceFunc(func(context.Context, string, int) ([]completions.Candidate, error) {
		if fail {
			return nil, completions.ErrTooLarge
		}
		return []completions.Candidate{{Display: "a"}}, nil
	}))
	s.Type(ref, 'a', TypeOptions{})
	if !s.Completions(ref).Visible {
		t.Fatal("expected visible list")
	}
	fail = true
	s.Type(ref, 'b', TypeOptions{})
	if ui := s.Completions(ref); ui.Visible || len(ui.Items) != 0 {
		t.Fatalf("expected cleared list after failure, got %+v", ui)
	}
}

func TestFetchBudget(t *testing.T) {
	var got time.Duration
	s := NewStore(completions.ServiceFunc(func(ctx context.Context, _ string, _ int) ([]completions.Candidate, error) {
		dl, ok := ctx.Deadline()
		if !ok {
			return nil, errors.New("no deadline")
		}
		got = time.Until(dl)
		return nil, nil
	}))
	s.SetFetchBudget(func(Ref) time.Duration { return time.Hour })
	s.Type(ref, 'a', TypeOptions{})
	if got < 59*time.Minute {
		t.Fatalf("deadline %v does not reflect the budget", got)
	}
}

func TestUserInputHookRunsBeforeInsert(t *testing.T) {
	s := NewStore(nil)
	s.SetBuffer(ref, "abc")
	var seen string
	s.OnUserInput(func(r Ref) {
		seen = s.Buffer(r)
		s.SetBuffer(r, "abcdef")
	})
	s.Type(ref, '!', TypeOptions{Origin: User})
	if seen != "abc" {
		t.Fatalf("hook saw %q; want abc", seen)
	}
	if got := s.Buffer(ref); got != "abcdef!" {
		t.Fatalf("Buffer = %q; want abcdef!", got)
	}

	seen = ""
	s.Type(ref, '?', TypeOptions{Origin: Scripted})
	if seen != "" {
		t.Fatal("hook fired for scripted input")
	}
}

func TestSelectCompletionReplacesPrefix(t *testing.T) {
	s := NewStore(staticService("abc", "abx", "abcd"))
	s.SetBuffer(ref, "x := a")
	s.Type(ref, 'b', TypeOptions{})
	s.MoveSelection(ref, 1)
	s.MoveSelection(ref, 1)
	if !s.SelectCompletion(ref) {
		t.Fatal("SelectCompletion returned false")
	}
	if got := s.Buffer(ref); got != "x := abcd" {
		t.Fatalf("Buffer = %q", got)
	}
	if got := s.Cursor(ref); got != len("x := abcd") {
		t.Fatalf("Cursor = %d", got)
	}
	if s.Completions(ref).Visible {
		t.Fatal("list still visible after select")
	}
	if s.SelectCompletion(ref) {
		t.Fatal("second select should be a no-op")
	}
}

func TestMoveSelectionClamps(t *testing.T) {
	s := NewStore(nil)
	s.MoveSelection(ref, 1) // empty list: no-op
	s.ShowCompletions(ref, []completions.Candidate{{Display: "a"}, {Display: "b"}})
	s.MoveSelection(ref, 5)
	if got := s.Completions(ref).Selected; got != 1 {
		t.Fatalf("Selected = %d; want 1", got)
	}
	s.MoveSelection(ref, -9)
	if got := s.Completions(ref).Selected; got != 0 {
		t.Fatalf("Selected = %d; want 0", got)
	}
}

func TestCompletionBox(t *testing.T) {
	s := NewStore(nil)
	s.SetBuffer(ref, "line one\n  fmt.Pr")
	s.ShowCompletions(ref, []completions.Candidate{{Display: "Println", Hint: "func"}, {Display: "Printf"}})
	box := s.CompletionBox(ref)
	want := Rect{X: 6, Y: 2, W: len("Println func") + 2, H: 2}
	if box != want {
		t.Fatalf("CompletionBox = %+v; want %+v", box, want)
	}
	s.ResetCompletionUI(ref)
	if s.CompletionBox(ref) != want {
		t.Fatal("box must survive a completion reset")
	}
}

func TestCaptions(t *testing.T) {
	s := NewStore(nil)
	var events []EventKind
	unsub := s.Subscribe(func(e Event) { events = append(events, e.Kind) })
	defer unsub()

	s.HideCaption(ref) // nothing visible: no event
	s.ShowCaption(ref, Caption{Text: "hi", Line: 0, Placement: take.PlacementBottom})
	c := s.CaptionState(ref)
	if c == nil || c.Text != "hi" {
		t.Fatalf("CaptionState = %+v", c)
	}
	c.Text = "mutated"
	if s.CaptionState(ref).Text != "hi" {
		t.Fatal("CaptionState must return a copy")
	}
	s.HideCaption(ref)
	if s.CaptionState(ref) != nil {
		t.Fatal("caption still visible")
	}
	if len(events) != 2 || events[0] != CaptionChanged || events[1] != CaptionChanged {
		t.Fatalf("events = %v", events)
	}
}

func TestBackspace(t *testing.T) {
	s := NewStore(nil)
	fired := 0
	s.OnUserInput(func(Ref) { fired++ })
	s.SetBuffer(ref, "aé")
	s.Backspace(ref)
	if got := s.Buffer(ref); got != "a" {
		t.Fatalf("Buffer = %q", got)
	}
	if fired != 1 {
		t.Fatalf("hook fired %d times", fired)
	}
}

func TestDropAndUnsubscribe(t *testing.T) {
	s := NewStore(nil)
	n := 0
	unsub := s.Subscribe(func(Event) { n++ })
	s.SetBuffer(ref, "x")
	unsub()
	s.Drop(ref)
	if n != 1 {
		t.Fatalf("received %d events; want 1", n)
	}
	if s.Buffer(ref) != "" {
		t.Fatal("dropped file still has a buffer")
	}
}

func TestPosition(t *testing.T) {
	cases := []struct {
		buf       string
		off       int
		line, col int
	}{
		{"", 0, 0, 0},
		{"abc", 2, 0, 2},
		{"a\nbc", 3, 1, 1},
		{"é\nx", 2, 0, 1},
		{"ab", 99, 0, 2},
	}
	for _, tc := range cases {
		l, c := Position(tc.buf, tc.off)
		if l != tc.line || c != tc.col {
			t.Errorf("Position(%q, %d) = (%d, %d); want (%d, %d)", tc.buf, tc.off, l, c, tc.line, tc.col)
		}
	}
	if LastLine("a\nb\n") != 2 {
		t.Error("LastLine")
	}
	if NewEditor() == NewEditor() {
		t.Error("editor IDs must be unique")
	}
}
