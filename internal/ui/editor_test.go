package ui

import (
	"strings"
	"testing"

	"codeberg.org/sigterm-de/scripter/internal/app"
	"codeberg.org/sigterm-de/scripter/internal/completions"
	"codeberg.org/sigterm-de/scripter/internal/editor"
	"codeberg.org/sigterm-de/scripter/internal/take"
	"github.com/charmbracelet/x/ansi"
)

func testStyles() Styles {
	return NewStyles(app.AppPreferences{
		AccentColor:     "#7D56F4",
		CaptionColor:    "#F4D35E",
		CompletionColor: "#3C3C5A",
	})
}

func rows(f editor.File, opts viewOptions) []string {
	return strings.Split(ansi.Strip(renderFile(f, testStyles(), opts)), "\n")
}

func popupFile() editor.File {
	return editor.File{
		Buffer: "x := ab",
		Cursor: 7,
		Completions: editor.CompletionUI{
			Items:    []completions.Candidate{{Display: "abcd", Hint: "func"}, {Display: "abx"}},
			Selected: 1,
			Visible:  true,
			Box:      editor.Rect{X: 5, Y: 1, W: 11, H: 2},
		},
	}
}

func TestRenderFileLineNumbersAndCursor(t *testing.T) {
	got := rows(editor.File{Buffer: "ab\ncd", Cursor: 1}, viewOptions{LineNumbers: true})
	want := []string{"1 ab", "2 cd"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("rows = %q; want %q", got, want)
	}

	got = rows(editor.File{Buffer: "ab", Cursor: 2}, viewOptions{})
	if got[0] != "ab " {
		t.Errorf("cursor at end = %q; want trailing cursor cell", got[0])
	}

	got = rows(editor.File{Buffer: "\tx", Cursor: 2}, viewOptions{})
	if got[0] != "    x " {
		t.Errorf("tab expansion = %q", got[0])
	}
}

func TestRenderFilePopupWithRightCaption(t *testing.T) {
	f := popupFile()
	f.Caption = &editor.Caption{Text: "pick", Line: -1, Placement: take.PlacementRight, At: editor.Rect{X: 17, Y: 2}}
	got := rows(f, viewOptions{})
	if len(got) != 3 {
		t.Fatalf("rows = %q", got)
	}
	if !strings.HasPrefix(got[1], "      abcd func") {
		t.Errorf("first popup row = %q", got[1])
	}
	if !strings.Contains(got[2], "abx") || !strings.HasSuffix(got[2], " pick ") {
		t.Errorf("caption not beside the selected row: %q", got[2])
	}
	if strings.Index(got[2], "pick") != 5+11+1+1 {
		t.Errorf("caption column = %d in %q", strings.Index(got[2], "pick"), got[2])
	}
}

func TestRenderFilePopupWithBottomCaption(t *testing.T) {
	f := popupFile()
	f.Caption = &editor.Caption{Text: "pick", Line: -1, Placement: take.PlacementBottom, At: editor.Rect{X: 5, Y: 4}}
	got := rows(f, viewOptions{})
	if len(got) != 5 {
		t.Fatalf("rows = %q", got)
	}
	if got[3] != "" {
		t.Errorf("margin row = %q", got[3])
	}
	if got[4] != "      pick " {
		t.Errorf("caption row = %q", got[4])
	}
}

func TestRenderFileLineCaption(t *testing.T) {
	f := editor.File{Buffer: "a\nb", Caption: &editor.Caption{Text: "note", Line: 1, Padding: true}}
	got := rows(f, viewOptions{})
	want := []string{"a", "b", "", "   note "}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("rows = %q; want %q", got, want)
	}

	// A cursor caption with no popup hangs under its row.
	f = editor.File{Buffer: "a\nb", Caption: &editor.Caption{Text: "c", Line: -1, At: editor.Rect{X: 3, Y: 1}}}
	got = rows(f, viewOptions{})
	if len(got) != 3 || got[1] != "    c " {
		t.Errorf("rows = %q", got)
	}
}

func TestRenderFileOverlayAndScroll(t *testing.T) {
	got := rows(editor.File{Buffer: "done", Overlay: true}, viewOptions{})
	if got[len(got)-1] != overlayText {
		t.Errorf("last row = %q", got[len(got)-1])
	}

	buf := "0\n1\n2\n3\n4\n5\n6\n7\n8\n9"
	got = rows(editor.File{Buffer: buf, Cursor: len(buf)}, viewOptions{Height: 3})
	if strings.Join(got, "|") != "7|8|9 " {
		t.Errorf("window = %q", got)
	}
	got = rows(editor.File{Buffer: buf, Cursor: 0}, viewOptions{Height: 3})
	if strings.Join(got, "|") != "0|1|2" {
		t.Errorf("window = %q", got)
	}
}

func TestDisplayCol(t *testing.T) {
	if got := displayCol("\tab", 2); got != tabWidth+1 {
		t.Errorf("displayCol = %d", got)
	}
	if got := displayCol("héllo", 3); got != 3 {
		t.Errorf("displayCol = %d", got)
	}
}
