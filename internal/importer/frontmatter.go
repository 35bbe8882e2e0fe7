package importer

import (
	"fmt"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/inkpost/internal/blog"
)

// FrontMatter is the YAML header of an article file.
type FrontMatter struct {
	ID           string `yaml:"id"`
	Title        string `yaml:"title"`
	Category     string `yaml:"category"`
	Excerpt      string `yaml:"excerpt"`
	Status       string `yaml:"status"`
	Image        string `yaml:"image"`
	Date         string `yaml:"date"`
	ShowTimeline bool   `yaml:"show_timeline"`
}

// Document is a parsed article file.
type Document struct {
	Path        string
	FrontMatter FrontMatter
	Body        string
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Parse splits a markdown file into its front matter and body. A file
// without front matter is all body.
func Parse(name string, data []byte) (Document, error) {
	doc := Document{Path: name}
	text := strings.TrimPrefix(string(data), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines := strings.Split(text, "\n")
	if strings.TrimRight(lines[0], " \t") != "---" {
		doc.Body = strings.TrimSpace(text)
		return doc, nil
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if l := strings.TrimRight(lines[i], " \t"); l == "---" || l == "..." {
			end = i
			break
		}
	}
	if end < 0 {
		return doc, fmt.Errorf("%s: front matter is not closed", name)
	}

	header := strings.Join(lines[1:end], "\n")
	if err := yaml.Unmarshal([]byte(header), &doc.FrontMatter); err != nil {
		return doc, fmt.Errorf("%s: parsing front matter: %w", name, err)
	}
	doc.Body = strings.TrimSpace(strings.Join(lines[end+1:], "\n"))
	return doc, nil
}

// Article converts the document into an article ready for the service.
func (d Document) Article() (blog.Article, error) {
	fm := d.FrontMatter
	a := blog.Article{
		ID:           strings.TrimSpace(fm.ID),
		Title:        strings.TrimSpace(fm.Title),
		Category:     strings.TrimSpace(fm.Category),
		Excerpt:      strings.TrimSpace(fm.Excerpt),
		Content:      d.Body,
		ImageURL:     strings.TrimSpace(fm.Image),
		ShowTimeline: fm.ShowTimeline,
	}
	if a.Title == "" {
		a.Title = titleFromBody(d.Body)
	}
	if a.Title == "" {
		a.Title = titleFromPath(d.Path)
	}

	switch s := blog.Status(strings.ToLower(strings.TrimSpace(fm.Status))); {
	case s == "":
		a.Status = blog.StatusPublished
	case s.Valid():
		a.Status = s
	default:
		return a, fmt.Errorf("%s: unknown status %q", d.Path, fm.Status)
	}

	if v := strings.TrimSpace(fm.Date); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return a, fmt.Errorf("%s: %w", d.Path, err)
		}
		a.Date = t
	}
	return a, nil
}

func parseDate(v string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", v)
}

func titleFromBody(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
		if line != "" {
			return ""
		}
	}
	return ""
}

func titleFromPath(p string) string {
	base := path.Base(p)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return strings.TrimSpace(base)
}
