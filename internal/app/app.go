package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"codeberg.org/sigterm-de/scripter/assets"
	"codeberg.org/sigterm-de/scripter/internal/completions"
	"codeberg.org/sigterm-de/scripter/internal/editor"
	"codeberg.org/sigterm-de/scripter/internal/engine"
	"codeberg.org/sigterm-de/scripter/internal/logging"
	"codeberg.org/sigterm-de/scripter/internal/loop"
	"codeberg.org/sigterm-de/scripter/internal/scripter"
	"codeberg.org/sigterm-de/scripter/internal/takes"
)

// InitLogging opens the log file and applies the configured level. A logger
// that cannot be opened is reported on stderr and playback carries on
// without it; the returned path is empty in that case.
func InitLogging(cfg Config, version string) string {
	logPath, err := logging.InitLogger(appName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scripter: warning: cannot initialise logger: %v\n", err)
		logPath = ""
	}
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))
	logging.Log(logging.INFO, "", fmt.Sprintf("scripter %s starting", version))
	return logPath
}

// LoadLibrary loads the embedded takes and the user takes from cfg.TakesDir.
func LoadLibrary(ctx context.Context, cfg Config) (*takes.Library, error) {
	if err := cfg.EnsureTakesDir(); err != nil {
		logging.Log(logging.WARN, "", err.Error())
	}
	loader := takes.NewLoader(assets.Takes(), engine.NewCompiler(assets.Lib()), takes.WithTimeout(cfg.JSTimeout()))
	result, err := loader.Load(ctx, cfg.TakesDir)
	if err != nil {
		return nil, fmt.Errorf("app: load takes: %w", err)
	}
	for _, skipped := range result.SkippedFiles {
		logging.Log(logging.WARN, skipped, "take was skipped during load")
	}
	logging.Log(logging.INFO, "",
		fmt.Sprintf("loaded %d built-in takes, %d user takes (%d skipped)",
			result.BuiltInCount, result.UserCount, len(result.SkippedFiles)))
	return takes.NewLibrary(result), nil
}

// NewCompletions returns the catalog-backed completions service.
func NewCompletions(cfg Config) (completions.Service, error) {
	symbols, err := completions.LoadCatalog(assets.Catalog())
	if err != nil {
		return nil, fmt.Errorf("app: load completion catalog: %w", err)
	}
	return completions.NewLocal(symbols,
		completions.WithLimit(cfg.Completions.Limit),
		completions.WithMaxBufferBytes(cfg.Completions.MaxBufferBytes),
	), nil
}

// Hooks observe the playback engine. Both run on the loop goroutine.
type Hooks struct {
	OnComplete func(name string)
	OnStatus   func(name string, status scripter.Status)
}

// App wires one editor instance: the store, the loop that serialises every
// engine call and the scripter driving the library's takes.
//
// Scripter and Store mutations must happen on the loop. Use Do or DoSync;
// Store reads are safe from any goroutine.
type App struct {
	Config   Config
	Library  *takes.Library
	Store    *editor.Store
	Loop     *loop.Loop
	Scripter *scripter.Scripter
	EditorID string

	hooks   Hooks
	waiters map[string][]chan struct{} // loop goroutine only
}

// New builds an App and registers every take of lib with the scripter.
func New(ctx context.Context, cfg Config, lib *takes.Library, hooks Hooks) (*App, error) {
	svc, err := NewCompletions(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Library:  lib,
		Store:    editor.NewStore(svc),
		Loop:     loop.New(),
		EditorID: editor.NewEditor(),
		hooks:    hooks,
		waiters:  make(map[string][]chan struct{}),
	}
	a.Scripter = scripter.New(a.EditorID, a.Store, a.Loop, scripter.Options{
		Loop:       cfg.Loop,
		Debounce:   cfg.Debounce(),
		StepGap:    cfg.StepGap(),
		Speed:      cfg.Speed,
		OnComplete: a.completed,
		OnStatus:   hooks.OnStatus,
	})

	a.Store.SetFetchBudget(a.fetchBudget)
	a.Store.OnUserInput(func(ref editor.Ref) {
		if ref.EditorID == a.EditorID {
			a.Scripter.Finish(ref.Script)
		}
	})

	err = a.Loop.DoSync(ctx, func() error {
		a.Scripter.SetScripts(lib.Scripts())
		return nil
	})
	if err != nil {
		a.Loop.Close()
		return nil, fmt.Errorf("app: register takes: %w", err)
	}
	return a, nil
}

// fetchBudget lets a playing take bound its completion fetch by the wait it
// is currently in; idle files use the configured timeout.
func (a *App) fetchBudget(ref editor.Ref) time.Duration {
	if ref.EditorID == a.EditorID {
		if d := a.Scripter.FetchBudget(ref); d > 0 {
			return d
		}
	}
	return a.Config.FetchTimeout()
}

func (a *App) completed(name string) {
	for _, ch := range a.waiters[name] {
		close(ch)
	}
	delete(a.waiters, name)
	if a.hooks.OnComplete != nil {
		a.hooks.OnComplete(name)
	}
}

// Do posts fn to the loop. It reports false once the app is closed.
func (a *App) Do(fn func()) bool { return a.Loop.Do(fn) }

// DoSync runs fn on the loop and waits for it.
func (a *App) DoSync(ctx context.Context, fn func() error) error {
	return a.Loop.DoSync(ctx, fn)
}

// Render plays name from its start buffer on the real loop and returns the
// buffer once the take completes. A looping configuration never completes,
// so callers render with Config.Loop off.
func (a *App) Render(ctx context.Context, name string) (string, error) {
	if _, ok := a.Library.Get(name); !ok {
		return "", fmt.Errorf("app: unknown take %q", name)
	}
	if a.Config.Loop {
		return "", fmt.Errorf("app: render %q: looping playback never completes", name)
	}

	done := make(chan struct{})
	err := a.DoSync(ctx, func() error {
		a.waiters[name] = append(a.waiters[name], done)
		a.Scripter.Ready(name)
		a.Scripter.Start(name)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("app: render %q: %w", name, err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		a.Do(func() { a.Scripter.Reset(name) })
		return "", fmt.Errorf("app: render %q: %w", name, ctx.Err())
	case <-a.Loop.Done():
		return "", fmt.Errorf("app: render %q: %w", name, loop.ErrStopped)
	}
	return a.Store.Buffer(a.Scripter.Ref(name)), nil
}

// Close stops the loop. Pending waits are dropped.
func (a *App) Close() {
	a.Loop.Close()
}
