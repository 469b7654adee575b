package takes

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"codeberg.org/sigterm-de/scripter/internal/take"
)

// Source distinguishes embedded (built-in) takes from user-provided ones.
type Source int

const (
	BuiltIn      Source = iota // Embedded via go:embed at compile time
	UserProvided               // Loaded from the user takes directory at startup
)

func (s Source) String() string {
	if s == UserProvided {
		return "user"
	}
	return "built-in"
}

// Entry is a loaded take plus the metadata the library sorts by.
type Entry struct {
	take.Script
	Bias     float64 // Lower values sort earlier
	Source   Source
	FilePath string // Virtual path for built-ins; absolute path for user takes
}

// Header is the /**! metadata block of a JS take.
type Header struct {
	Name        string
	Description string
	Tags        []string
	Bias        float64
}

// errNoHeader is returned when the file does not start with /**!.
var errNoHeader = errors.New("missing /**! header")

// ParseHeader parses the /**! metadata header of a JS take.
//
//	/**!
//	 * @name        HTTP server
//	 * @description Types a minimal net/http server
//	 * @tags        go,http
//	 * @bias        1
//	 */
//
// @name and @description are required; unknown keys are ignored.
func ParseHeader(content string) (Header, error) {
	h := Header{Tags: []string{}}

	body := strings.TrimPrefix(content, "\xef\xbb\xbf")
	if !strings.HasPrefix(body, "/**!") {
		return h, errNoHeader
	}
	end := strings.Index(body, "*/")
	if end < 0 {
		return h, fmt.Errorf("unclosed /**! header block")
	}

	for line := range strings.SplitSeq(body[4:end], "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		trimmed = strings.TrimPrefix(trimmed, "*")
		trimmed = strings.TrimLeft(trimmed, " \t")
		if !strings.HasPrefix(trimmed, "@") {
			continue
		}
		idx := strings.IndexAny(trimmed, " \t")
		if idx < 0 {
			continue
		}
		key := trimmed[1:idx]
		val := strings.TrimSpace(trimmed[idx+1:])

		switch key {
		case "name":
			h.Name = val
		case "description":
			h.Description = val
		case "tags":
			for tag := range strings.SplitSeq(val, ",") {
				if t := strings.TrimSpace(tag); t != "" {
					h.Tags = append(h.Tags, t)
				}
			}
		case "bias":
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				h.Bias = f
			}
		}
	}

	if strings.TrimSpace(h.Name) == "" {
		return h, fmt.Errorf("/**! header missing @name")
	}
	if strings.TrimSpace(h.Description) == "" {
		return h, fmt.Errorf("/**! header missing @description")
	}
	return h, nil
}
