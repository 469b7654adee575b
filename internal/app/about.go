package app

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// aboutModules are the dependencies whose versions About reports.
var aboutModules = []string{
	"github.com/dop251/goja",
	"github.com/charmbracelet/bubbletea",
}

// About returns the multi-line text printed by `scripter version --verbose`.
func About(version, commit, date string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "scripter %s (commit %s, built %s)\n", version, commit, date)
	b.WriteString("Interruptible code-typing playback for the terminal.\n\n")

	deps := moduleVersions(aboutModules)
	parts := []string{runtime.Version()}
	for _, m := range aboutModules {
		if v, ok := deps[m]; ok {
			parts = append(parts, m[strings.LastIndexByte(m, '/')+1:]+" "+v)
		}
	}
	b.WriteString(strings.Join(parts, " · ") + "\n\n")

	fmt.Fprintf(&b, "config:  %s\n", DefaultConfigPath())
	fmt.Fprintf(&b, "takes:   %s\n", DefaultTakesDir())
	if p, err := preferencesFilePath(); err == nil {
		fmt.Fprintf(&b, "prefs:   %s\n", p)
	}
	return b.String()
}

func moduleVersions(paths []string) map[string]string {
	out := make(map[string]string)
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}
	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		want[p] = true
	}
	for _, dep := range info.Deps {
		if want[dep.Path] {
			out[dep.Path] = dep.Version
		}
	}
	return out
}
