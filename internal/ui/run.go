package ui

import (
	"fmt"
	"sync"
	"time"

	"codeberg.org/sigterm-de/scripter/internal/app"
	"codeberg.org/sigterm-de/scripter/internal/editor"
	"codeberg.org/sigterm-de/scripter/internal/scripter"
	tea "github.com/charmbracelet/bubbletea"
)

// Relay forwards engine hooks and store events into a running program. The
// hooks exist before the app does, so the relay is attached afterwards;
// anything sent before that is dropped.
//
// Every send happens on the loop goroutine, which is also the only place the
// scripter may be read.
type Relay struct {
	mu sync.Mutex
	p  *tea.Program
	a  *app.App
}

// Hooks returns the app hooks that feed the relay.
func (r *Relay) Hooks() app.Hooks {
	return app.Hooks{
		OnComplete: func(name string) { r.send(completeMsg{Name: name}) },
		OnStatus: func(name string, st scripter.Status) {
			r.send(statusMsg{Name: name, Status: st, Pause: r.pause(name)})
		},
	}
}

func (r *Relay) attach(a *app.App, p *tea.Program) {
	r.mu.Lock()
	r.a, r.p = a, p
	r.mu.Unlock()
}

func (r *Relay) detach() {
	r.mu.Lock()
	r.p = nil
	r.mu.Unlock()
}

func (r *Relay) onEvent(ev editor.Event) {
	r.mu.Lock()
	a := r.a
	r.mu.Unlock()
	if a == nil || ev.Ref.EditorID != a.EditorID {
		return
	}
	r.send(fileMsg{Event: ev, Pause: r.pause(ev.Ref.Script)})
}

func (r *Relay) pause(name string) time.Duration {
	r.mu.Lock()
	a := r.a
	r.mu.Unlock()
	if a == nil {
		return 0
	}
	return a.Scripter.CurrentPause(name)
}

func (r *Relay) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.p
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Run shows the player until the user quits. The relay must be the one
// whose Hooks were passed to app.New.
func Run(a *app.App, relay *Relay, prefs app.AppPreferences, logPath string) error {
	p := tea.NewProgram(NewModel(a, prefs, logPath), tea.WithAltScreen())
	relay.attach(a, p)
	defer relay.detach()

	unsubscribe := a.Store.Subscribe(relay.onEvent)
	defer unsubscribe()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}
