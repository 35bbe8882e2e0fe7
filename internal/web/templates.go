package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/ziadkadry99/inkpost/internal/blog"
	"github.com/ziadkadry99/inkpost/internal/render"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

var pageNames = []string{"home", "blog", "post", "search", "studio", "error"}

// PageData is passed to every page template.
type PageData struct {
	Title       string
	SiteTitle   string
	Active      string
	CurrentPath string
	Theme       string
	Flash       *Flash
	Data        any
}

// pages holds one template set per page, each a clone of the base layout
// with the page's "content" block parsed into it.
type pages struct {
	sets map[string]*template.Template
}

func parsePages() (*pages, error) {
	base, err := template.New("base").Funcs(templateFuncs()).ParseFS(templatesFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parse base template: %w", err)
	}
	p := &pages{sets: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tmpl, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone template: %w", err)
		}
		path := "templates/" + name + ".html"
		if _, err := tmpl.ParseFS(templatesFS, path); err != nil {
			return nil, fmt.Errorf("parse page template %s: %w", path, err)
		}
		p.sets[name] = tmpl
	}
	return p, nil
}

// execute renders into a buffer first so a template error never leaves a
// half-written page behind.
func (p *pages) execute(w http.ResponseWriter, status int, name string, data PageData) error {
	tmpl, ok := p.sets[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("execute page %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate": render.FormatDate,
		"isoDate":    func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
		"published":  func(s blog.Status) bool { return s == blog.StatusPublished },
		"truncate":   truncate,
		"lower":      strings.ToLower,
		"year":       func() int { return time.Now().Year() },
	}
}

func truncate(n int, s string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
