// Package loop runs every scripter callback on one goroutine. It wraps the
// goja_nodejs event loop, whose timer queue provides the cooperative
// scheduling the playback engine relies on.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"

	"codeberg.org/sigterm-de/scripter/internal/scripter"
)

// DefaultSyncTimeout bounds DoSync when the context has no deadline.
const DefaultSyncTimeout = 5 * time.Second

// ErrStopped is returned when work is posted to a closed loop.
var ErrStopped = errors.New("loop: not running")

// Loop is a started event loop. It implements scripter.Scheduler.
type Loop struct {
	el *eventloop.EventLoop

	mu      sync.RWMutex
	stopped bool
	done    chan struct{}
}

// New starts a loop in a background goroutine. Call Close when done.
func New() *Loop {
	el := eventloop.NewEventLoop(eventloop.EnableConsole(false))
	el.Start()
	return &Loop{el: el, done: make(chan struct{})}
}

type timer struct {
	el *eventloop.EventLoop
	t  *eventloop.Timer
}

func (t timer) Stop() { t.el.ClearTimeout(t.t) }

// AfterFunc runs fn on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) scripter.Timer {
	t := l.el.SetTimeout(func(*goja.Runtime) { fn() }, d)
	return timer{el: l.el, t: t}
}

// Do posts fn to the loop. It reports false when the loop is closed.
func (l *Loop) Do(fn func()) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.stopped {
		return false
	}
	return l.el.RunOnLoop(func(*goja.Runtime) { fn() })
}

// DoSync runs fn on the loop and waits for it. Must not be called from the
// loop goroutine.
func (l *Loop) DoSync(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	if !l.Do(func() { errCh <- fn() }) {
		return ErrStopped
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultSyncTimeout)
		defer cancel()
	}
	select {
	case err := <-errCh:
		return err
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return fmt.Errorf("loop: sync call: %w", ctx.Err())
	}
}

// Done is closed once Close has been called.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Close stops the loop. Pending timers are dropped. Safe to call more than
// once.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	close(l.done)
	l.mu.Unlock()
	l.el.StopNoWait()
}
