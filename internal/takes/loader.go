package takes

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/sigterm-de/scripter/internal/engine"
	"codeberg.org/sigterm-de/scripter/internal/logging"
	"codeberg.org/sigterm-de/scripter/internal/take"
)

// MaxTakeBytes is the size cap for a single user take file.
const MaxTakeBytes = 1 << 20

// LoadResult is the combined outcome of loading built-in and user takes.
type LoadResult struct {
	Takes        []Entry  // Successfully loaded takes from all sources
	SkippedFiles []string // Paths of files that were skipped
	BuiltInCount int
	UserCount    int
}

// Loader discovers and parses takes from an embedded FS and the user takes
// directory.
type Loader interface {
	// Load reads all built-in and user takes. Bad files are logged and
	// skipped; Load returns an error only for system-level failures.
	Load(ctx context.Context, userDir string) (LoadResult, error)
}

type loader struct {
	builtinFS fs.FS
	compiler  engine.Compiler
	timeout   time.Duration
}

// LoaderOption configures a Loader.
type LoaderOption func(*loader)

// WithTimeout bounds the evaluation of each JS take.
func WithTimeout(d time.Duration) LoaderOption {
	return func(l *loader) { l.timeout = d }
}

// NewLoader returns a Loader reading built-ins from builtinFS (pass
// assets.Takes()) and evaluating JS takes with compiler.
func NewLoader(builtinFS fs.FS, compiler engine.Compiler, opts ...LoaderOption) Loader {
	l := &loader{builtinFS: builtinFS, compiler: compiler}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load implements Loader. A user take replaces a built-in take of the same
// name; a second take with a name already loaded from the same source is
// skipped.
func (l *loader) Load(ctx context.Context, userDir string) (LoadResult, error) {
	var result LoadResult
	index := make(map[string]int)

	add := func(e Entry) {
		i, dup := index[e.Name]
		switch {
		case !dup:
			index[e.Name] = len(result.Takes)
			result.Takes = append(result.Takes, e)
		case result.Takes[i].Source == BuiltIn && e.Source == UserProvided:
			logging.Log(logging.INFO, e.Name, "user take overrides built-in "+result.Takes[i].FilePath)
			result.Takes[i] = e
			result.BuiltInCount--
		default:
			logging.Log(logging.WARN, e.Name, "skipping duplicate take name: "+e.FilePath)
			result.SkippedFiles = append(result.SkippedFiles, e.FilePath)
			return
		}
		if e.Source == BuiltIn {
			result.BuiltInCount++
		} else {
			result.UserCount++
		}
	}

	// ── Built-in takes ──
	if l.builtinFS != nil {
		err := fs.WalkDir(l.builtinFS, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			// lib/ holds @scripter/ helper modules, not takes.
			if d.IsDir() {
				if d.Name() == "lib" {
					return fs.SkipDir
				}
				return nil
			}
			if !isTakeFile(path) {
				return nil
			}
			data, readErr := fs.ReadFile(l.builtinFS, path)
			if readErr != nil {
				logging.Log(logging.WARN, path, "cannot read embedded take: "+readErr.Error())
				result.SkippedFiles = append(result.SkippedFiles, path)
				return nil
			}
			e, parseErr := l.parse(ctx, path, data)
			if parseErr != nil {
				logging.Log(logging.WARN, path, "skipping: "+parseErr.Error())
				result.SkippedFiles = append(result.SkippedFiles, path)
				return nil
			}
			e.Source = BuiltIn
			e.FilePath = "embedded:" + path
			add(e)
			return nil
		})
		if err != nil {
			return result, fmt.Errorf("takes: walk built-ins: %w", err)
		}
	}

	// ── User takes ──
	if userDir != "" {
		l.loadUser(ctx, userDir, &result, add)
	}
	return result, nil
}

func (l *loader) loadUser(ctx context.Context, dir string, result *LoadResult, add func(Entry)) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.Log(logging.INFO, "", "user takes dir does not exist: "+dir)
			return
		}
		logging.Log(logging.WARN, "", "cannot read user takes dir: "+err.Error())
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !isTakeFile(entry.Name()) {
			continue
		}
		info, statErr := entry.Info()
		if statErr != nil {
			logging.Log(logging.WARN, entry.Name(), "cannot stat user take: "+statErr.Error())
			result.SkippedFiles = append(result.SkippedFiles, entry.Name())
			continue
		}
		if info.Size() > MaxTakeBytes {
			logging.Logf(logging.WARN, entry.Name(), "skipping: file size %d B exceeds limit of %d B", info.Size(), MaxTakeBytes)
			result.SkippedFiles = append(result.SkippedFiles, entry.Name())
			continue
		}

		absPath := filepath.Join(dir, entry.Name())
		data, readErr := os.ReadFile(absPath)
		if readErr != nil {
			logging.Log(logging.WARN, entry.Name(), "cannot read user take: "+readErr.Error())
			result.SkippedFiles = append(result.SkippedFiles, entry.Name())
			continue
		}
		e, parseErr := l.parse(ctx, entry.Name(), data)
		if parseErr != nil {
			logging.Log(logging.WARN, entry.Name(), "skipping: "+parseErr.Error())
			result.SkippedFiles = append(result.SkippedFiles, entry.Name())
			continue
		}
		e.Source = UserProvided
		e.FilePath = absPath
		add(e)
	}
}

// parse turns one file into an Entry according to its extension.
func (l *loader) parse(ctx context.Context, path string, data []byte) (Entry, error) {
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, ".js") {
		return l.parseJS(ctx, data)
	}
	format, ok := take.FormatForExt(ext)
	if !ok {
		return Entry{}, fmt.Errorf("unsupported extension %q", ext)
	}
	doc, err := take.Decode(data, format)
	if err != nil {
		return Entry{}, err
	}
	s, err := doc.Script()
	if err != nil {
		return Entry{}, err
	}
	return Entry{Script: s, Bias: doc.Bias}, nil
}

func (l *loader) parseJS(ctx context.Context, data []byte) (Entry, error) {
	h, err := ParseHeader(string(data))
	if err != nil {
		return Entry{}, err
	}
	if l.compiler == nil {
		return Entry{}, errors.New("no JS engine configured")
	}
	res := l.compiler.Compile(ctx, engine.Input{Source: string(data), Name: h.Name, Timeout: l.timeout})
	if !res.Success {
		return Entry{}, errors.New(res.ErrorMessage)
	}
	if res.InfoMessage != "" {
		logging.Log(logging.INFO, h.Name, res.InfoMessage)
	}
	s := res.Script
	s.Description = h.Description
	s.Tags = h.Tags
	return Entry{Script: s, Bias: h.Bias}, nil
}

func isTakeFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".js" {
		return true
	}
	_, ok := take.FormatForExt(ext)
	return ok
}
