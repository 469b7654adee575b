package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"codeberg.org/sigterm-de/scripter/internal/editor"
	"codeberg.org/sigterm-de/scripter/internal/take"
	"github.com/charmbracelet/lipgloss"
)

const tabWidth = 4

const overlayText = "take finished · ctrl+r to replay"

// viewOptions controls how a file is drawn.
type viewOptions struct {
	LineNumbers bool
	Height      int // rows available; <= 0 means unbounded
}

// renderFile draws a file: the buffer with its cursor, the completion popup
// under the cursor line and the caption. Popup and caption rows are inserted
// between buffer lines rather than drawn over them.
func renderFile(f editor.File, st Styles, opts viewOptions) string {
	lines := strings.Split(f.Buffer, "\n")
	curLine, curCol := editor.Position(f.Buffer, f.Cursor)

	gutter := 0
	if opts.LineNumbers {
		gutter = len(fmt.Sprint(len(lines))) + 1
	}
	pad := func(n int) string { return strings.Repeat(" ", max(n, 0)) }

	var rows []string
	cursorRow := 0
	captionDone := f.Caption == nil

	for i, line := range lines {
		var b strings.Builder
		if opts.LineNumbers {
			b.WriteString(st.Gutter.Render(fmt.Sprintf("%*d ", gutter-1, i+1)))
		}
		if i == curLine {
			cursorRow = len(rows)
			b.WriteString(withCursor(line, curCol, st.Cursor))
		} else {
			b.WriteString(expandTabs(line))
		}
		rows = append(rows, b.String())

		c := f.Caption
		if f.Completions.Visible && i == f.Completions.Box.Y-1 {
			box := f.Completions.Box
			x := gutter + displayCol(line, box.X)
			popup := popupRows(f.Completions, st)
			var below []string
			if c != nil && !captionDone && c.Line < 0 {
				right := c.Placement == take.PlacementRight && c.At.Y >= box.Y && c.At.Y < box.Y+len(popup)
				if right {
					row := c.At.Y - box.Y
					popup[row] += pad(c.At.X-box.X-box.W) + st.Caption.Render(c.Text)
				} else {
					for range max(c.At.Y-box.Y-len(popup), 0) {
						below = append(below, "")
					}
					below = append(below, indent(st.Caption.Render(c.Text), x+c.At.X-box.X)...)
				}
				captionDone = true
			}
			for _, p := range popup {
				rows = append(rows, pad(x)+p)
			}
			rows = append(rows, below...)
		}

		if c != nil && !captionDone {
			switch {
			case c.Line >= 0 && (i == c.Line || (i == len(lines)-1 && c.Line >= len(lines))):
				if c.Padding {
					rows = append(rows, "")
				}
				rows = append(rows, indent(st.Caption.Render(c.Text), gutter+2)...)
				captionDone = true
			case c.Line < 0 && i == min(max(c.At.Y-1, 0), len(lines)-1):
				rows = append(rows, indent(st.Caption.Render(c.Text), gutter+c.At.X)...)
				captionDone = true
			}
		}
	}

	if f.Overlay {
		rows = append(rows, "", st.Overlay.Render(overlayText))
	}

	if opts.Height > 0 && len(rows) > opts.Height {
		start := min(max(cursorRow-opts.Height/2, 0), len(rows)-opts.Height)
		rows = rows[start : start+opts.Height]
	}
	return strings.Join(rows, "\n")
}

// popupRows renders the completion list, each row padded to the box width.
func popupRows(ui editor.CompletionUI, st Styles) []string {
	w := ui.Box.W
	out := make([]string, 0, len(ui.Items))
	for i, it := range ui.Items {
		label := " " + it.Display
		if it.Hint != "" {
			gap := w - 1 - utf8.RuneCountInString(it.Display) - utf8.RuneCountInString(it.Hint) - 1
			label += strings.Repeat(" ", max(gap, 1)) + st.PopupHint.Render(it.Hint)
		}
		label += strings.Repeat(" ", max(w-lipgloss.Width(label), 0))
		if i == ui.Selected {
			out = append(out, st.PopupActive.Render(label))
		} else {
			out = append(out, st.Popup.Render(label))
		}
	}
	return out
}

// withCursor renders line with the rune at col highlighted; at end of line
// the cursor is a highlighted space.
func withCursor(line string, col int, cursor lipgloss.Style) string {
	runes := []rune(line)
	col = min(max(col, 0), len(runes))
	head := expandTabs(string(runes[:col]))
	if col == len(runes) {
		return head + cursor.Render(" ")
	}
	under := string(runes[col])
	if under == "\t" {
		under = " "
	}
	return head + cursor.Render(under) + expandTabs(string(runes[col+1:]))
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}

// displayCol converts a rune column into a screen column with tabs expanded.
func displayCol(line string, col int) int {
	n := 0
	for i, r := range []rune(line) {
		if i >= col {
			break
		}
		if r == '\t' {
			n += tabWidth
		} else {
			n++
		}
	}
	return n
}

func indent(block string, n int) []string {
	prefix := strings.Repeat(" ", max(n, 0))
	parts := strings.Split(block, "\n")
	for i, p := range parts {
		parts[i] = prefix + p
	}
	return parts
}
