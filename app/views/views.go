// Package views holds the embedded page templates.
package views

import (
	"embed"
	"fmt"
	"html/template"

	"github.com/yellowrose/possrv/pkg/view"
)

// Layout is the file every page is rendered through.
const Layout = "layout.html"

//go:embed *.html
var FS embed.FS

// Funcs are the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
		"add":   func(a, b int) int { return a + b },
		"sub":   func(a, b int) int { return a - b },
	}
}

// New parses the embedded templates.
func New() (*view.Engine, error) {
	return view.New(FS, Layout, Funcs())
}
