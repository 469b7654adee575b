package completions

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxBufferBytes is the buffer size above which Local refuses to
	// complete, mirroring the limit a remote completion backend enforces.
	DefaultMaxBufferBytes = 1 << 20 // 1 MB

	// DefaultLimit caps the number of returned candidates.
	DefaultLimit = 10
)

// Symbol is one entry of a completion catalog.
type Symbol struct {
	Name string `yaml:"name"`
	Hint string `yaml:"hint"`
	ID   string `yaml:"id"`
}

// Local ranks catalog symbols against the identifier prefix at the cursor.
type Local struct {
	symbols        []Symbol
	limit          int
	maxBufferBytes int
}

// LocalOption configures a Local service.
type LocalOption func(*Local)

// WithLimit sets the maximum number of candidates returned.
func WithLimit(n int) LocalOption {
	return func(l *Local) {
		if n > 0 {
			l.limit = n
		}
	}
}

// WithMaxBufferBytes sets the size limit beyond which Complete returns ErrTooLarge.
func WithMaxBufferBytes(n int) LocalOption {
	return func(l *Local) {
		if n > 0 {
			l.maxBufferBytes = n
		}
	}
}

// NewLocal returns a catalog-backed Service.
func NewLocal(symbols []Symbol, opts ...LocalOption) *Local {
	l := &Local{
		symbols:        append([]Symbol(nil), symbols...),
		limit:          DefaultLimit,
		maxBufferBytes: DefaultMaxBufferBytes,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadCatalog decodes a YAML catalog of the form `symbols: [{name, hint, id}]`.
func LoadCatalog(data []byte) ([]Symbol, error) {
	var doc struct {
		Symbols []Symbol `yaml:"symbols"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("completions: decode catalog: %w", err)
	}
	out := doc.Symbols[:0]
	for _, s := range doc.Symbols {
		if strings.TrimSpace(s.Name) != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// Complete implements Service. An empty prefix yields no candidates.
func (l *Local) Complete(ctx context.Context, text string, cursor int) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(text) > l.maxBufferBytes {
		return nil, ErrTooLarge
	}
	prefix, _ := Prefix(text, cursor)
	if prefix == "" {
		return nil, nil
	}

	matches := fuzzy.FindFrom(prefix, symbolSource(l.symbols))
	out := make([]Candidate, 0, min(len(matches), l.limit))
	for _, m := range matches {
		if len(out) == l.limit {
			break
		}
		s := l.symbols[m.Index]
		out = append(out, Candidate{
			Display:  s.Name,
			Insert:   s.Name,
			Hint:     s.Hint,
			SymbolID: s.ID,
		})
	}
	return out, ctx.Err()
}

// symbolSource implements fuzzy.Source over catalog names.
type symbolSource []Symbol

func (s symbolSource) String(i int) string { return s[i].Name }
func (s symbolSource) Len() int            { return len(s) }
