package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/sigterm-de/scripter/internal/logging"
	"github.com/adrg/xdg"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	xdg.Reload()
	t.Cleanup(func() { _ = logging.Close() })

	base := []string{"--config", filepath.Join(dir, "config.yaml"), "--takes-dir", filepath.Join(dir, "takes")}
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, base...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "scripter dev (commit none") {
		t.Errorf("version output = %q", out)
	}
}

func TestSchemaCommand(t *testing.T) {
	out, err := execute(t, "schema")
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	if doc["title"] != "scripter take" {
		t.Errorf("title = %v", doc["title"])
	}
}

func TestListCommand(t *testing.T) {
	out, err := execute(t, "list")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"NAME", "Hello, Go", "HTTP server", "built-in"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "list", "python")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Python greeting") || strings.Contains(out, "HTTP server") {
		t.Errorf("filtered list:\n%s", out)
	}
}

func TestRenderCommand(t *testing.T) {
	out, err := execute(t, "render", "Python greeting", "--speed", "200")
	if err != nil {
		t.Fatal(err)
	}
	want := "def greet(name):\n    return f\"hi {name}\"\n\nprint(greet(\"gopher\"))\n"
	if out != want {
		t.Errorf("render output = %q; want %q", out, want)
	}

	if _, err := execute(t, "render", "nope"); err == nil {
		t.Error("unknown take rendered")
	}
	if _, err := execute(t, "render", "Python greeting", "--speed=-1"); err == nil {
		t.Error("negative speed accepted")
	}
}

func TestVersionVerbose(t *testing.T) {
	out, err := execute(t, "version", "--verbose")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"scripter dev", "config:", "takes:"} {
		if !strings.Contains(out, want) {
			t.Errorf("verbose version missing %q:\n%s", want, out)
		}
	}
}
