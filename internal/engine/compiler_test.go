package engine

import (
	"context"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"codeberg.org/sigterm-de/scripter/assets"
	"codeberg.org/sigterm-de/scripter/internal/take"
)

func compile(t *testing.T, src string) Result {
	t.Helper()
	return NewCompiler(nil).Compile(context.Background(), Input{Source: src, Name: "test", Timeout: 2 * time.Second})
}

func TestCompileChainedTake(t *testing.T) {
	r := compile(t, `
function main(take) {
  take.start("x := ", 5)
      .chars("ab", 30)
      .pause()
      .caption("look here", {padding: true})
      .completion({select: "abcd", complete: "cd", finalSelectionWait: 200, cursorCaption: "pick", placement: "bottom", marginTop: 1})
      .chars("()", {ms: 10, skipCompletions: true})
      .hideCaption();
}`)
	if !r.Success {
		t.Fatalf("Compile failed: %s", r.ErrorMessage)
	}
	s := r.Script
	if s.Name != "test" || s.StartBuffer != "x := " || s.Cursor() != 5 {
		t.Fatalf("unexpected script header: %+v", s)
	}
	if s.FilledBuffer != "x := abcd()" {
		t.Errorf("FilledBuffer = %q", s.FilledBuffer)
	}
	wantKinds := []take.StepKind{take.KindChars, take.KindPause, take.KindCaption, take.KindCompletion, take.KindChars, take.KindCaption}
	if len(s.Steps) != len(wantKinds) {
		t.Fatalf("got %d steps; want %d", len(s.Steps), len(wantKinds))
	}
	for i, k := range wantKinds {
		if s.Steps[i].Kind() != k {
			t.Errorf("step %d kind = %v; want %v", i, s.Steps[i].Kind(), k)
		}
	}
	if c := s.Steps[0].(take.Chars); c.Amount != 30*time.Millisecond {
		t.Errorf("chars amount = %v", c.Amount)
	}
	if c := s.Steps[2].(take.Caption); !c.CompletionCaptionPadding {
		t.Error("caption padding not set")
	}
	comp := s.Steps[3].(take.Completion)
	if comp.CursorCaptionPlacement != take.PlacementBottom || comp.FinalSelectionWait != 200*time.Millisecond || comp.MarginTop != 1 {
		t.Errorf("completion = %+v", comp)
	}
	if c := s.Steps[4].(take.Chars); !c.SkipCompletions || c.Amount != 10*time.Millisecond {
		t.Errorf("chars opts = %+v", c)
	}
}

func TestCompileCache(t *testing.T) {
	r := compile(t, `
function main(take) {
  take.chars("ab").completion({select: "abcd", complete: "cd"});
  take.cache(2, [{display: "abx"}, {display: "abcd", insert: "abcd", hint: "func", symbol_id: "s1"}]);
}`)
	if !r.Success {
		t.Fatalf("Compile failed: %s", r.ErrorMessage)
	}
	items := r.Script.Cached[2]
	if len(items) != 2 || items[1].Display != "abcd" || items[1].SymbolID != "s1" || items[1].Hint != "func" {
		t.Fatalf("Cached[2] = %+v", items)
	}
}

func TestCompileNativeModules(t *testing.T) {
	r := compile(t, `
const yaml = require("@scripter/yaml");
const plist = require("@scripter/plist");
function main(take) {
  const doc = yaml.parse("lines:\n  - one\n  - two\n");
  take.chars(doc.lines.join(","));
  const p = plist.parse(plist.stringify({k: "v"}));
  take.chars(p.k);
}`)
	if !r.Success {
		t.Fatalf("Compile failed: %s", r.ErrorMessage)
	}
	if r.Script.FilledBuffer != "one,twov" {
		t.Errorf("FilledBuffer = %q", r.Script.FilledBuffer)
	}
}

func TestCompileNativeModuleErrors(t *testing.T) {
	for _, tc := range []struct{ call, want string }{
		{`yaml.parse()`, "yaml.parse requires an argument"},
		{`yaml.parse("a: [")`, "yaml.parse:"},
		{`plist.stringify()`, "plist.stringify requires an argument"},
	} {
		r := compile(t, `
const yaml = require("@scripter/yaml");
const plist = require("@scripter/plist");
function main(take) { `+tc.call+`; }`)
		if r.Success {
			t.Errorf("%s: compile succeeded", tc.call)
			continue
		}
		if !strings.Contains(r.ErrorMessage, tc.want) {
			t.Errorf("%s: ErrorMessage = %q; want it to mention %q", tc.call, r.ErrorMessage, tc.want)
		}
	}
}

func TestCompileLibModule(t *testing.T) {
	lib := fstest.MapFS{
		"shout.js": {Data: []byte(`exports.shout = function (take, s) { return take.chars(s.toUpperCase()); };`)},
	}
	r := NewCompiler(lib).Compile(context.Background(), Input{
		Name:   "lib",
		Source: `const s = require("@scripter/shout"); function main(take) { s.shout(take, "hey"); }`,
	})
	if !r.Success {
		t.Fatalf("Compile failed: %s", r.ErrorMessage)
	}
	if r.Script.FilledBuffer != "HEY" {
		t.Errorf("FilledBuffer = %q", r.Script.FilledBuffer)
	}
}

func TestCompileBuiltInJSTakes(t *testing.T) {
	c := NewCompiler(assets.Lib())
	err := fs.WalkDir(assets.Takes(), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == "lib" {
			return fs.SkipDir
		}
		if d.IsDir() || !strings.HasSuffix(path, ".js") {
			return nil
		}
		data, err := fs.ReadFile(assets.Takes(), path)
		if err != nil {
			return err
		}
		r := c.Compile(context.Background(), Input{Name: path, Source: string(data)})
		if !r.Success {
			t.Errorf("%s: %s", path, r.ErrorMessage)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCompileRejectsForeignModules(t *testing.T) {
	r := compile(t, `const fs = require("fs"); function main(take) { take.chars("x"); }`)
	if r.Success {
		t.Fatal("require(\"fs\") must fail")
	}
}

func TestCompileSandbox(t *testing.T) {
	r := compile(t, `
function main(take) {
  for (const g of ["fetch", "process", "setTimeout", "eval"]) {
    if (typeof globalThis[g] !== "undefined") take.postError(g + " is visible");
  }
  take.chars("ok");
}`)
	if !r.Success {
		t.Fatalf("sandbox leak: %s", r.ErrorMessage)
	}
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", `function main(take) {`, ""},
		{"no main", `var x = 1;`, "main(take)"},
		{"throws", `function main(take) { throw new Error("kaput"); }`, "kaput"},
		{"post error", `function main(take) { take.chars("x"); take.postError("nope"); take.postError("later"); }`, "nope"},
		{"no steps", `function main(take) { take.start("x"); }`, "no steps"},
		{"filled mismatch", `function main(take) { take.chars("ab").filled("abc"); }`, "filled buffer"},
		{"bad placement", `function main(take) { take.completion({select: "a", complete: "a", placement: "left"}); }`, "placement"},
		{"completion without options", `function main(take) { take.completion("a"); }`, "options object"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := compile(t, tc.src)
			if r.Success {
				t.Fatal("expected failure")
			}
			if r.Name != "test" {
				t.Errorf("Name = %q", r.Name)
			}
			if !strings.Contains(r.ErrorMessage, tc.want) {
				t.Errorf("ErrorMessage %q does not mention %q", r.ErrorMessage, tc.want)
			}
		})
	}
}

func TestCompilePostInfo(t *testing.T) {
	r := compile(t, `function main(take) { take.postInfo("hello"); take.postInfo("ignored"); take.chars("x"); }`)
	if !r.Success || r.InfoMessage != "hello" {
		t.Fatalf("result = %+v", r)
	}
}

func TestCompileTimeout(t *testing.T) {
	r := NewCompiler(nil).Compile(context.Background(), Input{
		Name:    "spin",
		Source:  `function main(take) { for (;;) {} }`,
		Timeout: 50 * time.Millisecond,
	})
	if r.Success || !r.TimedOut {
		t.Fatalf("result = %+v", r)
	}
	if !strings.Contains(r.ErrorMessage, "timed out") {
		t.Errorf("ErrorMessage = %q", r.ErrorMessage)
	}
}

func TestCompileContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	r := NewCompiler(nil).Compile(ctx, Input{
		Name:    "spin",
		Source:  `function main(take) { for (;;) {} }`,
		Timeout: time.Minute,
	})
	if r.Success || !r.TimedOut {
		t.Fatalf("result = %+v", r)
	}
}
