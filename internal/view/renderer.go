// Package view renders the HTML pages.
package view

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	layoutFile   = "templates/layout.html"
	userFormFile = "templates/users/form.html"
)

// Page names understood by Renderer.
const (
	PageUsers        = "users/index"
	PageUser         = "users/show"
	PageUserEdit     = "users/edit"
	PageUpload       = "upload"
	PageUploadResult = "upload_result"
	PageError        = "error"
)

var funcs = template.FuncMap{
	"email": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

// Renderer implements echo.Renderer over a set of page templates that share
// one layout.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page under templates/ in fsys.
func NewRenderer(fsys fs.FS) (*Renderer, error) {
	pages, err := pageFiles(fsys)
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, file := range pages {
		name := strings.TrimSuffix(strings.TrimPrefix(file, "templates/"), ".html")
		t, err := template.New(name).Funcs(funcs).ParseFS(fsys, layoutFile, userFormFile, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

func pageFiles(fsys fs.FS) ([]string, error) {
	var files []string
	for _, pattern := range []string{"templates/*.html", "templates/users/*.html"} {
		matches, err := fs.Glob(fsys, pattern)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if m == layoutFile || m == userFormFile {
				continue
			}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found")
	}
	return files, nil
}

// Render executes the layout with the named page's content block.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[path.Clean(name)]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

// Has reports whether a page is registered.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}
