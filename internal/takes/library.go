// Package takes discovers take files and keeps them in a searchable library.
package takes

import (
	"sort"
	"strings"

	"codeberg.org/sigterm-de/scripter/internal/take"
	"github.com/sahilm/fuzzy"
)

// Library is the combined searchable set of loaded takes.
type Library struct {
	sorted []Entry
	byName map[string]int
}

// NewLibrary sorts the loaded takes into canonical order: Bias ascending,
// built-ins before user takes, then Name (case-insensitive).
func NewLibrary(result LoadResult) *Library {
	entries := make([]Entry, len(result.Takes))
	copy(entries, result.Takes)

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Bias != b.Bias {
			return a.Bias < b.Bias
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})

	byName := make(map[string]int, len(entries))
	for i, e := range entries {
		byName[e.Name] = i
	}
	return &Library{sorted: entries, byName: byName}
}

// All returns every take in canonical order.
func (lib *Library) All() []Entry {
	out := make([]Entry, len(lib.sorted))
	copy(out, lib.sorted)
	return out
}

// Len returns the number of loaded takes.
func (lib *Library) Len() int { return len(lib.sorted) }

// Get looks a take up by exact name.
func (lib *Library) Get(name string) (Entry, bool) {
	i, ok := lib.byName[name]
	if !ok {
		return Entry{}, false
	}
	return lib.sorted[i], true
}

// Scripts returns the takes in canonical order, ready for the scripter
// registry.
func (lib *Library) Scripts() []take.Script {
	out := make([]take.Script, len(lib.sorted))
	for i, e := range lib.sorted {
		out[i] = e.Script
	}
	return out
}

// Search fuzzy-matches query against take names and tags. An empty query
// returns All(). Results are ordered by match score; never nil.
func (lib *Library) Search(query string) []Entry {
	if query == "" {
		return lib.All()
	}
	matches := fuzzy.FindFrom(query, entrySource(lib.sorted))
	result := make([]Entry, len(matches))
	for i, m := range matches {
		result[i] = lib.sorted[m.Index]
	}
	return result
}

// entrySource implements fuzzy.Source over name plus tags.
type entrySource []Entry

func (s entrySource) String(i int) string {
	if len(s[i].Tags) == 0 {
		return s[i].Name
	}
	return s[i].Name + " " + strings.Join(s[i].Tags, " ")
}

func (s entrySource) Len() int { return len(s) }
