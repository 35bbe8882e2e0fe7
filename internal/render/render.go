// Package render turns stored article content into safe HTML.
package render

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// DateLayout is the long US date used on article cards and pages.
const DateLayout = "January 2, 2006"

// Renderer converts markdown (or stored HTML) into sanitized HTML.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	strict *bluemonday.Policy
}

// New builds a Renderer with GFM and chroma highlighting.
func New() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			// Stored content may already be HTML. It is sanitized afterwards.
			gmhtml.WithUnsafe(),
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("id").Matching(regexp.MustCompile(`^[a-zA-Z0-9\-_]+$`)).OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	policy.AllowStyles("color", "background-color", "font-weight", "font-style").OnElements("span", "pre", "code")

	return &Renderer{
		md:     md,
		policy: policy,
		strict: bluemonday.StrictPolicy(),
	}
}

// Markdown renders content to HTML and sanitizes the result.
func (r *Renderer) Markdown(content string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}

// StripHTML removes raw HTML from markdown content for the editor. HTML
// blocks are reduced to their text and inline tags are dropped. Code spans,
// code blocks and autolinks are left as written.
func (r *Renderer) StripHTML(content string) string {
	src := []byte(content)
	doc := r.md.Parser().Parse(text.NewReader(src))

	var edits []htmlEdit
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.HTMLBlock:
			lines := n.Lines()
			if lines.Len() == 0 {
				return ast.WalkSkipChildren, nil
			}
			start, stop := lines.At(0).Start, lines.At(lines.Len()-1).Stop
			if n.HasClosure() && n.ClosureLine.Stop > stop {
				stop = n.ClosureLine.Stop
			}
			plain := html.UnescapeString(r.strict.Sanitize(string(src[start:stop])))
			edits = append(edits, htmlEdit{start: start, stop: stop, repl: plain})
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			for i := 0; i < n.Segments.Len(); i++ {
				seg := n.Segments.At(i)
				edits = append(edits, htmlEdit{start: seg.Start, stop: seg.Stop})
			}
		}
		return ast.WalkContinue, nil
	})
	if len(edits) == 0 {
		return strings.TrimSpace(content)
	}

	slices.SortFunc(edits, func(a, b htmlEdit) int { return a.start - b.start })
	var b strings.Builder
	b.Grow(len(src))
	pos := 0
	for _, e := range edits {
		if e.start < pos {
			continue
		}
		b.Write(src[pos:e.start])
		b.WriteString(e.repl)
		pos = e.stop
	}
	b.Write(src[pos:])
	return strings.TrimSpace(b.String())
}

// htmlEdit replaces src[start:stop] with repl.
type htmlEdit struct {
	start, stop int
	repl        string
}

// FormatDate formats t with DateLayout. The zero time renders empty.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
