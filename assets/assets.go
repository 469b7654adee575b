// Package assets exposes the embedded built-in takes, their JS helper
// modules and the default completion catalog.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed takes catalog.yaml
var embedded embed.FS

// Takes returns a sub-filesystem rooted at the takes/ directory. Helper
// modules for JS takes live under lib/.
func Takes() fs.FS {
	sub, err := fs.Sub(embedded, "takes")
	if err != nil {
		panic("assets: sub takes: " + err.Error())
	}
	return sub
}

// Lib returns the JS helper modules served as @scripter/<name>.
func Lib() fs.FS {
	sub, err := fs.Sub(embedded, "takes/lib")
	if err != nil {
		panic("assets: sub takes/lib: " + err.Error())
	}
	return sub
}

// Catalog returns the default completion symbol catalog (YAML).
func Catalog() []byte {
	data, err := embedded.ReadFile("catalog.yaml")
	if err != nil {
		panic("assets: read catalog.yaml: " + err.Error())
	}
	return data
}
