// Package engine evaluates JavaScript takes. A JS take defines
// main(take) and describes its steps through the take builder; the result is
// an ordinary take.Script.
package engine

import (
	"context"
	"time"

	"codeberg.org/sigterm-de/scripter/internal/take"
)

// DefaultTimeout bounds a single evaluation when Input.Timeout is unset.
const DefaultTimeout = 5 * time.Second

// Input carries everything the engine needs to evaluate one JS take.
type Input struct {
	Source  string        // Full JS source text
	Name    string        // Take name (for error messages, log entries and the Script)
	Timeout time.Duration // Hard evaluation timeout
}

// Result is the structured outcome returned by Compile.
// Script is only valid when Success == true.
type Result struct {
	Success      bool
	Script       take.Script
	ErrorMessage string // Human-readable; valid when Success == false
	InfoMessage  string // Set when the take called postInfo()
	Name         string
	TimedOut     bool
}

// Compiler evaluates a JS take. Implementations MUST be safe to call from any
// goroutine. Each call creates a fresh JS runtime.
type Compiler interface {
	Compile(ctx context.Context, input Input) Result
}
