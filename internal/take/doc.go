package take

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"codeberg.org/sigterm-de/scripter/internal/completions"
	"gopkg.in/yaml.v3"
	"howett.net/plist"
)

// Format identifies a take file encoding.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
	FormatPlist
)

// FormatForExt maps a file extension (with dot) to a Format.
func FormatForExt(ext string) (Format, bool) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".json":
		return FormatJSON, true
	case ".plist":
		return FormatPlist, true
	}
	return 0, false
}

// Doc is the on-disk representation of a take.
type Doc struct {
	Name          string      `json:"name" yaml:"name" plist:"name" jsonschema:"required"`
	Description   string      `json:"description" yaml:"description" plist:"description" jsonschema:"required"`
	Tags          []string    `json:"tags,omitempty" yaml:"tags,omitempty" plist:"tags,omitempty"`
	Bias          float64     `json:"bias,omitempty" yaml:"bias,omitempty" plist:"bias,omitempty"`
	StartBuffer   string      `json:"start_buffer" yaml:"start_buffer" plist:"start_buffer"`
	FilledBuffer  string      `json:"filled_buffer,omitempty" yaml:"filled_buffer,omitempty" plist:"filled_buffer,omitempty"`
	InitialCursor *int        `json:"initial_cursor,omitempty" yaml:"initial_cursor,omitempty" plist:"initial_cursor,omitempty"`
	Steps         []StepDoc   `json:"steps" yaml:"steps" plist:"steps" jsonschema:"required,minItems=1"`
	Cached        []CachedDoc `json:"cached_completions,omitempty" yaml:"cached_completions,omitempty" plist:"cached_completions,omitempty"`
}

// StepDoc is a flat step record discriminated by Type.
type StepDoc struct {
	Type string `json:"type" yaml:"type" plist:"type" jsonschema:"required,enum=chars,enum=pause,enum=completion,enum=caption"`

	Sequence        string `json:"sequence,omitempty" yaml:"sequence,omitempty" plist:"sequence,omitempty"`
	AmountMs        int    `json:"amount_ms,omitempty" yaml:"amount_ms,omitempty" plist:"amount_ms,omitempty"`
	SkipCompletions bool   `json:"skip_completions,omitempty" yaml:"skip_completions,omitempty" plist:"skip_completions,omitempty"`

	Select                 string `json:"select,omitempty" yaml:"select,omitempty" plist:"select,omitempty"`
	Complete               string `json:"complete,omitempty" yaml:"complete,omitempty" plist:"complete,omitempty"`
	FinalSelectionWaitMs   int    `json:"final_selection_wait_ms,omitempty" yaml:"final_selection_wait_ms,omitempty" plist:"final_selection_wait_ms,omitempty"`
	CursorCaption          string `json:"cursor_caption,omitempty" yaml:"cursor_caption,omitempty" plist:"cursor_caption,omitempty"`
	CursorCaptionPlacement string `json:"cursor_caption_placement,omitempty" yaml:"cursor_caption_placement,omitempty" plist:"cursor_caption_placement,omitempty" jsonschema:"enum=right,enum=bottom"`
	MarginTop              int    `json:"margin_top,omitempty" yaml:"margin_top,omitempty" plist:"margin_top,omitempty"`
	MarginLeft             int    `json:"margin_left,omitempty" yaml:"margin_left,omitempty" plist:"margin_left,omitempty"`
	AfterClass             string `json:"after_class,omitempty" yaml:"after_class,omitempty" plist:"after_class,omitempty"`

	Caption                  string `json:"caption,omitempty" yaml:"caption,omitempty" plist:"caption,omitempty"`
	Hide                     bool   `json:"hide,omitempty" yaml:"hide,omitempty" plist:"hide,omitempty"`
	CompletionCaptionPadding bool   `json:"completion_caption_padding,omitempty" yaml:"completion_caption_padding,omitempty" plist:"completion_caption_padding,omitempty"`
}

// CachedDoc is one row of the cached-completions table.
type CachedDoc struct {
	Offset int                     `json:"offset" yaml:"offset" plist:"offset"`
	Items  []completions.Candidate `json:"items" yaml:"items" plist:"items"`
}

// Decode parses a take document in the given format.
func Decode(data []byte, format Format) (Doc, error) {
	var doc Doc
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	case FormatPlist:
		_, err = plist.Unmarshal(data, &doc)
	default:
		return doc, fmt.Errorf("take: unknown format %d", format)
	}
	if err != nil {
		return doc, fmt.Errorf("take: decode: %w", err)
	}
	return doc, nil
}

// Script converts the document into a validated Script. FilledBuffer is
// derived from the steps when omitted.
func (d Doc) Script() (Script, error) {
	s := Script{
		Name:          d.Name,
		Description:   d.Description,
		Tags:          append([]string{}, d.Tags...),
		StartBuffer:   d.StartBuffer,
		FilledBuffer:  d.FilledBuffer,
		InitialCursor: d.InitialCursor,
	}
	if strings.TrimSpace(s.Name) == "" {
		return s, fmt.Errorf("take: missing name")
	}
	for i, sd := range d.Steps {
		st, err := sd.Step()
		if err != nil {
			return s, fmt.Errorf("take: step %d: %w", i, err)
		}
		s.Steps = append(s.Steps, st)
	}
	if len(d.Cached) > 0 {
		s.Cached = make(map[int][]completions.Candidate, len(d.Cached))
		for _, c := range d.Cached {
			s.Cached[c.Offset] = append(s.Cached[c.Offset], c.Items...)
		}
	}
	Normalize(&s)
	if err := Validate(s); err != nil {
		return s, err
	}
	return s, nil
}

// Step converts a single step record.
func (sd StepDoc) Step() (Step, error) {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	switch strings.ToLower(sd.Type) {
	case "chars":
		return Chars{Sequence: sd.Sequence, Amount: ms(sd.AmountMs), SkipCompletions: sd.SkipCompletions}, nil
	case "pause":
		return Pause{Amount: ms(sd.AmountMs)}, nil
	case "completion":
		p, err := ParsePlacement(sd.CursorCaptionPlacement)
		if err != nil {
			return nil, err
		}
		return Completion{
			Select:                 sd.Select,
			Complete:               sd.Complete,
			FinalSelectionWait:     ms(sd.FinalSelectionWaitMs),
			CursorCaption:          sd.CursorCaption,
			CursorCaptionPlacement: p,
			MarginTop:              sd.MarginTop,
			MarginLeft:             sd.MarginLeft,
			AfterClass:             sd.AfterClass,
			Amount:                 ms(sd.AmountMs),
		}, nil
	case "caption":
		return Caption{Text: sd.Caption, Hide: sd.Hide, CompletionCaptionPadding: sd.CompletionCaptionPadding}, nil
	}
	return nil, fmt.Errorf("unknown step type %q", sd.Type)
}

// DocFor is the inverse of Doc.Script; used when exporting takes.
func DocFor(s Script) Doc {
	d := Doc{
		Name:          s.Name,
		Description:   s.Description,
		Tags:          s.Tags,
		StartBuffer:   s.StartBuffer,
		FilledBuffer:  s.FilledBuffer,
		InitialCursor: s.InitialCursor,
	}
	for _, st := range s.Steps {
		switch v := st.(type) {
		case Chars:
			d.Steps = append(d.Steps, StepDoc{Type: "chars", Sequence: v.Sequence, AmountMs: int(v.Amount.Milliseconds()), SkipCompletions: v.SkipCompletions})
		case Pause:
			d.Steps = append(d.Steps, StepDoc{Type: "pause", AmountMs: int(v.Amount.Milliseconds())})
		case Completion:
			d.Steps = append(d.Steps, StepDoc{
				Type:                   "completion",
				Select:                 v.Select,
				Complete:               v.Complete,
				FinalSelectionWaitMs:   int(v.FinalSelectionWait.Milliseconds()),
				CursorCaption:          v.CursorCaption,
				CursorCaptionPlacement: v.CursorCaptionPlacement.String(),
				MarginTop:              v.MarginTop,
				MarginLeft:             v.MarginLeft,
				AfterClass:             v.AfterClass,
				AmountMs:               int(v.Amount.Milliseconds()),
			})
		case Caption:
			d.Steps = append(d.Steps, StepDoc{Type: "caption", Caption: v.Text, Hide: v.Hide, CompletionCaptionPadding: v.CompletionCaptionPadding})
		}
	}
	offsets := make([]int, 0, len(s.Cached))
	for off := range s.Cached {
		offsets = append(offsets, off)
	}
	sort.Ints(offsets)
	for _, off := range offsets {
		d.Cached = append(d.Cached, CachedDoc{Offset: off, Items: s.Cached[off]})
	}
	return d
}
