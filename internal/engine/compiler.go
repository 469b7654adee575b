package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync/atomic"
	"time"

	"codeberg.org/sigterm-de/scripter/internal/logging"
	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
)

// errTimeout is the interrupt value used to distinguish a timeout from other
// interrupt causes.
var errTimeout = errors.New("take evaluation timed out")

type compiler struct {
	lib fs.FS // helper modules served as @scripter/<name>.js; may be nil
}

// NewCompiler returns a ready-to-use Compiler. lib holds the JS helper
// modules; pass assets.Lib().
func NewCompiler(lib fs.FS) Compiler {
	return &compiler{lib: lib}
}

// Compile implements Compiler. It never panics.
func (c *compiler) Compile(ctx context.Context, input Input) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{
				Name:         input.Name,
				ErrorMessage: fmt.Sprintf("internal engine error: %v", r),
			}
		}
	}()

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	// ── Sandbox ──
	// Takes describe steps; they have no business touching the network, the
	// process or timers.
	poisoned := []string{
		"fetch", "XMLHttpRequest", "WebSocket",
		"process", "global", "Buffer",
		"setTimeout", "setInterval", "clearTimeout", "clearInterval",
		"eval",
	}
	for _, name := range poisoned {
		vm.Set(name, goja.Undefined())
	}

	// ── Modules: only @scripter/ paths ──
	registry := require.NewRegistry(require.WithLoader(c.requireLoader))
	registerModules(registry)
	registry.Enable(vm)
	registerConsoleLog(vm, input.Name)

	b := newBuilder()
	takeObj := bindBuilder(vm, b)

	timeout := input.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	prog, err := goja.Compile(input.Name, input.Source, false)
	if err != nil {
		return Result{Name: input.Name, ErrorMessage: err.Error()}
	}

	// ── Timeout and cancellation ──
	var timedOut atomic.Bool
	timer := time.AfterFunc(timeout, func() {
		timedOut.Store(true)
		vm.Interrupt(errTimeout)
	})
	defer timer.Stop()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			timedOut.Store(true)
			vm.Interrupt(errTimeout)
		case <-stop:
		}
	}()

	// ── Run: define functions, then main(take) ──
	if _, runErr := vm.RunProgram(prog); runErr != nil {
		return runError(runErr, timedOut.Load(), timeout, input.Name)
	}
	mainFn, ok := goja.AssertFunction(vm.Get("main"))
	if !ok {
		return Result{
			Name:         input.Name,
			ErrorMessage: "take does not define a top-level function main(take)",
		}
	}
	if _, callErr := mainFn(goja.Undefined(), takeObj); callErr != nil {
		return runError(callErr, timedOut.Load(), timeout, input.Name)
	}

	return b.Result(input.Name)
}

func runError(err error, timedOut bool, timeout time.Duration, name string) Result {
	if timedOut {
		return Result{
			TimedOut:     true,
			Name:         name,
			ErrorMessage: fmt.Sprintf("take evaluation timed out after %v", timeout),
		}
	}
	msg := err.Error()
	var jsException *goja.Exception
	if errors.As(err, &jsException) {
		msg = jsException.Error()
	}
	return Result{Name: name, ErrorMessage: msg}
}

// requireLoader serves @scripter/ JS helper modules from the lib FS and
// rejects every other module path.
//
// goja_nodejs normalises require("@scripter/foo") to
// "node_modules/@scripter/foo" before calling the loader.
func (c *compiler) requireLoader(path string) ([]byte, error) {
	modPath := strings.TrimPrefix(path, "node_modules/")
	if name, ok := strings.CutPrefix(modPath, "@scripter/"); ok {
		if c.lib != nil {
			if data, err := fs.ReadFile(c.lib, strings.TrimSuffix(name, ".js")+".js"); err == nil {
				return data, nil
			}
		}
		// Native modules are resolved by the registry after this miss.
		return nil, require.ModuleFileDoesNotExistError
	}
	return nil, fmt.Errorf("cannot find module '%s'", path)
}

// registerConsoleLog writes console.log calls to the log file at INFO level.
func registerConsoleLog(vm *goja.Runtime, name string) {
	console := vm.NewObject()
	console.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		logging.Log(logging.INFO, name, strings.Join(parts, " "))
		return goja.Undefined()
	})
	vm.Set("console", console)
}
