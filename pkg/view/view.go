// Package view renders html/template pages that share one layout.
//
//	engine, err := view.New(views.FS, "layout.html", views.Funcs())
//	engine.Render(w, http.StatusOK, "login", data)
//
// Every other *.html file in the FS is a page named after its base name.
// Pages define the blocks the layout calls; the layout is executed by the
// name of its file.
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"sort"
	"strings"
)

// Engine holds one parsed template set per page.
type Engine struct {
	layout string
	pages  map[string]*template.Template
}

// New parses layout together with every other .html file in fsys.
func New(fsys fs.FS, layout string, funcs template.FuncMap) (*Engine, error) {
	files, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return nil, fmt.Errorf("view: glob: %w", err)
	}

	e := &Engine{layout: layout, pages: make(map[string]*template.Template)}
	for _, f := range files {
		if f == layout {
			continue
		}
		t, err := template.New(layout).Funcs(funcs).ParseFS(fsys, layout, f)
		if err != nil {
			return nil, fmt.Errorf("view: parse %s: %w", f, err)
		}
		e.pages[strings.TrimSuffix(path.Base(f), ".html")] = t
	}
	if len(e.pages) == 0 {
		return nil, fmt.Errorf("view: no pages besides %s", layout)
	}
	return e, nil
}

// Must panics if err is non-nil.
func Must(e *Engine, err error) *Engine {
	if err != nil {
		panic(err)
	}
	return e
}

// Pages returns the page names, sorted.
func (e *Engine) Pages() []string {
	names := make([]string, 0, len(e.pages))
	for n := range e.pages {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Render executes page into a buffer and writes it with status. Nothing is
// written to w if execution fails.
func (e *Engine) Render(w http.ResponseWriter, status int, page string, data interface{}) error {
	t, ok := e.pages[page]
	if !ok {
		return fmt.Errorf("view: unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, e.layout, data); err != nil {
		return fmt.Errorf("view: render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
