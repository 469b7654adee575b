package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
)

// LogLevel represents the severity of a log entry.
type LogLevel int

const (
	DEBUG LogLevel = -1
	INFO  LogLevel = 0
	WARN  LogLevel = 1
	ERROR LogLevel = 2
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name to a LogLevel, defaulting to INFO.
func ParseLevel(s string) LogLevel {
	switch s {
	case "debug", "DEBUG":
		return DEBUG
	case "warn", "WARN", "warning":
		return WARN
	case "error", "ERROR":
		return ERROR
	}
	return INFO
}

var (
	mu       sync.Mutex
	out      io.Writer
	logFile  *os.File
	logPath  string
	minLevel = INFO
)

// InitLogger opens (or creates) the log file under the XDG state home
// (~/.local/state/<appName>/<appName>.log) and returns the resolved absolute
// path.
func InitLogger(appName string) (string, error) {
	mu.Lock()
	defer mu.Unlock()

	rel := filepath.Join(appName, appName+".log")
	p, err := xdg.StateFile(rel)
	if err != nil {
		return "", fmt.Errorf("logging: resolve state path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("logging: create log dir: %w", err)
	}

	f, err := os.OpenFile(p, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("logging: open log file: %w", err)
	}

	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = f
	out = f
	logPath = p
	return p, nil
}

// SetOutput redirects log lines to w (nil disables logging). Any file opened
// by InitLogger is closed.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
		logPath = ""
	}
	out = w
}

// SetLevel drops entries below l.
func SetLevel(l LogLevel) {
	mu.Lock()
	minLevel = l
	mu.Unlock()
}

// Log writes a structured line. Safe to call from any goroutine.
// If no output is configured, the entry is silently dropped.
func Log(level LogLevel, scriptName, message string) {
	mu.Lock()
	defer mu.Unlock()

	if out == nil || level < minLevel {
		return
	}

	ts := time.Now().UTC().Format(time.RFC3339)
	_, _ = fmt.Fprintf(out, "%s [%s] script=%q %s\n", ts, level, scriptName, message)
}

// Logf is Log with a format string.
func Logf(level LogLevel, scriptName, format string, args ...any) {
	Log(level, scriptName, fmt.Sprintf(format, args...))
}

// Close closes the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	out = nil
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// Path returns the resolved log file path (empty string if not initialised).
func Path() string {
	mu.Lock()
	defer mu.Unlock()
	return logPath
}
