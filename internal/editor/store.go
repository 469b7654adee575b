// Package editor holds the editor state the playback engine drives: one file
// per (editor, script) pair with its buffer, cursor, completion list and
// caption. Scripted and real keystrokes go through the same Type pipeline.
package editor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"codeberg.org/sigterm-de/scripter/internal/completions"
	"codeberg.org/sigterm-de/scripter/internal/logging"
	"codeberg.org/sigterm-de/scripter/internal/take"
	"github.com/google/uuid"
)

// DefaultFetchTimeout bounds a completion fetch when no budget hook is set.
const DefaultFetchTimeout = 200 * time.Millisecond

// Ref addresses one file of one editor instance.
type Ref struct {
	EditorID string
	Script   string
}

// Rect is a screen rectangle in cells.
type Rect struct {
	X, Y, W, H int
}

// Origin tells scripted keystrokes from real ones.
type Origin int

const (
	Scripted Origin = iota
	User
)

// TypeOptions controls a single keystroke.
type TypeOptions struct {
	Origin          Origin
	SkipCompletions bool
}

// CompletionUI is the completion list state of a file.
type CompletionUI struct {
	Items    []completions.Candidate
	Selected int
	Visible  bool
	Box      Rect // last known box rectangle
}

// Caption is a callout rendered next to the buffer.
type Caption struct {
	Text      string
	Line      int // buffer line the caption is attached to; -1 when positioned by At
	Placement take.Placement
	At        Rect
	Class     string
	Padding   bool
}

// File is a point-in-time copy of one file's state.
type File struct {
	Buffer      string
	Cursor      int
	Completions CompletionUI
	Caption     *Caption
	Overlay     bool
}

// EventKind classifies store mutations.
type EventKind int

const (
	BufferChanged EventKind = iota
	CursorMoved
	CompletionsChanged
	CaptionChanged
	OverlayChanged
	FileDropped
)

// Event is published after every mutation.
type Event struct {
	Ref  Ref
	Kind EventKind
}

// Store is safe for concurrent use. Subscribers and hooks are invoked without
// the lock held.
type Store struct {
	mu          sync.RWMutex
	files       map[Ref]*File
	svc         completions.Service
	budget      func(Ref) time.Duration
	onUserInput func(Ref)
	subs        map[int]func(Event)
	nextSub     int
}

// NewStore returns an empty store. svc may be nil, in which case no
// completions are ever fetched.
func NewStore(svc completions.Service) *Store {
	return &Store{
		files: make(map[Ref]*File),
		svc:   svc,
		subs:  make(map[int]func(Event)),
	}
}

// NewEditor mints a fresh editor instance ID.
func NewEditor() string {
	return uuid.NewString()
}

// SetFetchBudget installs the hook that decides how long a completion fetch
// may take for a file.
func (s *Store) SetFetchBudget(fn func(Ref) time.Duration) {
	s.mu.Lock()
	s.budget = fn
	s.mu.Unlock()
}

// OnUserInput installs the hook fired before a user keystroke is applied.
func (s *Store) OnUserInput(fn func(Ref)) {
	s.mu.Lock()
	s.onUserInput = fn
	s.mu.Unlock()
}

// Subscribe registers fn for every Event and returns an unsubscribe func.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) publish(ref Ref, kind EventKind) {
	s.mu.RLock()
	subs := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()
	for _, fn := range subs {
		fn(Event{Ref: ref, Kind: kind})
	}
}

// file returns the file for ref, creating it. Caller holds the write lock.
func (s *Store) file(ref Ref) *File {
	f, ok := s.files[ref]
	if !ok {
		f = &File{}
		s.files[ref] = f
	}
	return f
}

// Snapshot returns a copy of the file state.
func (s *Store) Snapshot(ref Ref) File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[ref]
	if !ok {
		return File{}
	}
	out := *f
	out.Completions.Items = append([]completions.Candidate(nil), f.Completions.Items...)
	if f.Caption != nil {
		c := *f.Caption
		out.Caption = &c
	}
	return out
}

// Drop forgets the file for ref.
func (s *Store) Drop(ref Ref) {
	s.mu.Lock()
	delete(s.files, ref)
	s.mu.Unlock()
	s.publish(ref, FileDropped)
}

// Buffer returns the current buffer text.
func (s *Store) Buffer(ref Ref) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f, ok := s.files[ref]; ok {
		return f.Buffer
	}
	return ""
}

// SetBuffer replaces the buffer, moves the cursor to its end and clears the
// completion list.
func (s *Store) SetBuffer(ref Ref, text string) {
	s.mu.Lock()
	f := s.file(ref)
	f.Buffer = text
	f.Cursor = len(text)
	f.Completions = CompletionUI{Box: f.Completions.Box}
	s.mu.Unlock()
	s.publish(ref, BufferChanged)
}

// Cursor returns the cursor byte offset.
func (s *Store) Cursor(ref Ref) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f, ok := s.files[ref]; ok {
		return f.Cursor
	}
	return 0
}

// SetCursor moves the cursor, clamped to the buffer.
func (s *Store) SetCursor(ref Ref, pos int) {
	s.mu.Lock()
	f := s.file(ref)
	f.Cursor = min(max(pos, 0), len(f.Buffer))
	s.mu.Unlock()
	s.publish(ref, CursorMoved)
}

// Type inserts ch at the cursor and then refreshes the completion list unless
// opts.SkipCompletions is set. For user keystrokes the OnUserInput hook runs
// first, so an upstream abandon-to-edit sees the buffer before the key lands.
func (s *Store) Type(ref Ref, ch rune, opts TypeOptions) {
	if opts.Origin == User {
		s.mu.RLock()
		hook := s.onUserInput
		s.mu.RUnlock()
		if hook != nil {
			hook(ref)
		}
	}

	s.mu.Lock()
	f := s.file(ref)
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], ch)
	cur := min(max(f.Cursor, 0), len(f.Buffer))
	f.Buffer = f.Buffer[:cur] + string(buf[:n]) + f.Buffer[cur:]
	f.Cursor = cur + n
	text, cursor := f.Buffer, f.Cursor
	s.mu.Unlock()
	s.publish(ref, BufferChanged)

	if opts.SkipCompletions {
		return
	}
	s.fetch(ref, text, cursor)
}

// Backspace deletes the character before the cursor. Always user input.
func (s *Store) Backspace(ref Ref) {
	s.mu.RLock()
	hook := s.onUserInput
	s.mu.RUnlock()
	if hook != nil {
		hook(ref)
	}

	s.mu.Lock()
	f := s.file(ref)
	if f.Cursor == 0 || len(f.Buffer) == 0 {
		s.mu.Unlock()
		return
	}
	_, size := utf8.DecodeLastRuneInString(f.Buffer[:f.Cursor])
	f.Buffer = f.Buffer[:f.Cursor-size] + f.Buffer[f.Cursor:]
	f.Cursor -= size
	f.Completions = CompletionUI{Box: f.Completions.Box}
	s.mu.Unlock()
	s.publish(ref, BufferChanged)
}

func (s *Store) fetch(ref Ref, text string, cursor int) {
	s.mu.RLock()
	svc, budget := s.svc, s.budget
	s.mu.RUnlock()
	if svc == nil {
		return
	}

	timeout := DefaultFetchTimeout
	if budget != nil {
		if d := budget(ref); d > 0 {
			timeout = d
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	items, err := svc.Complete(ctx, text, cursor)
	if err != nil {
		if !errors.Is(err, completions.ErrTooLarge) && !errors.Is(err, context.DeadlineExceeded) {
			logging.Log(logging.WARN, ref.Script, "completion fetch failed: "+err.Error())
		}
		items = nil
	}
	s.ShowCompletions(ref, items)
}

// Completions returns a copy of the completion list state.
func (s *Store) Completions(ref Ref) CompletionUI {
	return s.Snapshot(ref).Completions
}

// ShowCompletions replaces the completion list, resets the highlight and
// recomputes the box rectangle from the cursor position.
func (s *Store) ShowCompletions(ref Ref, items []completions.Candidate) {
	s.mu.Lock()
	f := s.file(ref)
	f.Completions.Items = append([]completions.Candidate(nil), items...)
	f.Completions.Selected = 0
	f.Completions.Visible = len(items) > 0
	if f.Completions.Visible {
		f.Completions.Box = boxFor(f.Buffer, f.Cursor, items)
	}
	s.mu.Unlock()
	s.publish(ref, CompletionsChanged)
}

// MoveSelection moves the highlighted index by n, clamped to the list.
func (s *Store) MoveSelection(ref Ref, n int) {
	s.mu.Lock()
	f := s.file(ref)
	if len(f.Completions.Items) == 0 {
		s.mu.Unlock()
		return
	}
	f.Completions.Selected = min(max(f.Completions.Selected+n, 0), len(f.Completions.Items)-1)
	s.mu.Unlock()
	s.publish(ref, CompletionsChanged)
}

// SelectCompletion replaces the identifier prefix before the cursor with the
// highlighted candidate and closes the list. Reports whether anything was
// inserted.
func (s *Store) SelectCompletion(ref Ref) bool {
	s.mu.Lock()
	f := s.file(ref)
	ui := f.Completions
	if !ui.Visible || ui.Selected < 0 || ui.Selected >= len(ui.Items) {
		s.mu.Unlock()
		return false
	}
	insert := ui.Items[ui.Selected].InsertText()
	_, start := completions.Prefix(f.Buffer, f.Cursor)
	f.Buffer = f.Buffer[:start] + insert + f.Buffer[f.Cursor:]
	f.Cursor = start + len(insert)
	f.Completions = CompletionUI{Box: ui.Box}
	s.mu.Unlock()
	s.publish(ref, BufferChanged)
	return true
}

// ResetCompletionUI closes the completion list.
func (s *Store) ResetCompletionUI(ref Ref) {
	s.mu.Lock()
	f := s.file(ref)
	f.Completions = CompletionUI{Box: f.Completions.Box}
	s.mu.Unlock()
	s.publish(ref, CompletionsChanged)
}

// CompletionBox returns the last known completion box rectangle.
func (s *Store) CompletionBox(ref Ref) Rect {
	return s.Snapshot(ref).Completions.Box
}

// ShowCaption displays c, replacing any visible caption.
func (s *Store) ShowCaption(ref Ref, c Caption) {
	s.mu.Lock()
	f := s.file(ref)
	f.Caption = &c
	s.mu.Unlock()
	s.publish(ref, CaptionChanged)
}

// HideCaption removes the visible caption, if any.
func (s *Store) HideCaption(ref Ref) {
	s.mu.Lock()
	f := s.file(ref)
	had := f.Caption != nil
	f.Caption = nil
	s.mu.Unlock()
	if had {
		s.publish(ref, CaptionChanged)
	}
}

// CaptionState returns a copy of the visible caption, or nil.
func (s *Store) CaptionState(ref Ref) *Caption {
	return s.Snapshot(ref).Caption
}

// SetOverlay toggles the "take finished" overlay.
func (s *Store) SetOverlay(ref Ref, on bool) {
	s.mu.Lock()
	s.file(ref).Overlay = on
	s.mu.Unlock()
	s.publish(ref, OverlayChanged)
}

// LastLine returns the zero-based index of the last buffer line.
func LastLine(buffer string) int {
	return strings.Count(buffer, "\n")
}

// Position converts a byte offset into a zero-based line and column (runes).
func Position(buffer string, offset int) (line, col int) {
	offset = min(max(offset, 0), len(buffer))
	head := buffer[:offset]
	line = strings.Count(head, "\n")
	if i := strings.LastIndexByte(head, '\n'); i >= 0 {
		head = head[i+1:]
	}
	return line, utf8.RuneCountInString(head)
}

// boxFor places the completion box one line below the cursor, starting at the
// identifier prefix.
func boxFor(buffer string, cursor int, items []completions.Candidate) Rect {
	_, start := completions.Prefix(buffer, cursor)
	line, col := Position(buffer, start)
	w := 0
	for _, it := range items {
		n := utf8.RuneCountInString(it.Display)
		if it.Hint != "" {
			n += 1 + utf8.RuneCountInString(it.Hint)
		}
		w = max(w, n)
	}
	return Rect{X: col, Y: line + 1, W: w + 2, H: len(items)}
}
