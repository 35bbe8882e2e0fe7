// Package importer loads markdown files with YAML front matter into the blog.
package importer

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/ziadkadry99/inkpost/internal/blog"
	"github.com/ziadkadry99/inkpost/internal/progress"
)

// DefaultPattern matches every markdown file below the root.
const DefaultPattern = "**/*.md"

// DefaultExcludes are directory names never descended into.
var DefaultExcludes = []string{
	".git",
	"node_modules",
	"vendor",
	".inkpost",
}

var markdownExts = map[string]bool{".md": true, ".markdown": true}

// Discover returns the markdown files in fsys matching any of the glob
// patterns, sorted and without duplicates. Patterns support ** via
// doublestar.
func Discover(fsys fs.FS, patterns ...string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{DefaultPattern}
	}
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		pattern = strings.TrimPrefix(path.Clean(strings.ReplaceAll(pattern, "\\", "/")), "./")
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid pattern %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("matching %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] || excluded(m) || !markdownExts[strings.ToLower(path.Ext(m))] {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func excluded(p string) bool {
	for _, part := range strings.Split(path.Dir(p), "/") {
		for _, excl := range DefaultExcludes {
			if strings.EqualFold(part, excl) {
				return true
			}
		}
	}
	return false
}

// Failure records a file that could not be imported.
type Failure struct {
	Path string
	Err  error
}

// Result summarizes an import run.
type Result struct {
	Imported []*blog.Article
	Failed   []Failure
}

// Importer creates articles from files.
type Importer struct {
	svc      *blog.Service
	fsys     fs.FS
	log      *zap.Logger
	reporter progress.Reporter
	dryRun   bool
}

// Option configures an Importer.
type Option func(*Importer)

func WithLogger(l *zap.Logger) Option {
	return func(i *Importer) {
		if l != nil {
			i.log = l
		}
	}
}

func WithReporter(r progress.Reporter) Option {
	return func(i *Importer) {
		if r != nil {
			i.reporter = r
		}
	}
}

// WithDryRun parses every file without writing anything.
func WithDryRun(dry bool) Option {
	return func(i *Importer) { i.dryRun = dry }
}

// New creates an Importer reading from fsys.
func New(svc *blog.Service, fsys fs.FS, opts ...Option) *Importer {
	i := &Importer{
		svc:      svc,
		fsys:     fsys,
		log:      zap.NewNop(),
		reporter: progress.Nop{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import creates one article per file. A bad file is recorded in the
// result and the run continues; only cancellation stops it early.
func (i *Importer) Import(ctx context.Context, files []string) (*Result, error) {
	res := &Result{}
	i.reporter.Start(len(files))
	defer i.reporter.Finish()

	for n, name := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		a, err := i.importFile(ctx, name)
		if err != nil {
			i.log.Warn("import failed", zap.String("file", name), zap.Error(err))
			res.Failed = append(res.Failed, Failure{Path: name, Err: err})
		} else {
			i.log.Debug("imported article", zap.String("file", name), zap.String("id", a.ID))
			res.Imported = append(res.Imported, a)
		}
		i.reporter.Update(n+1, name)
	}
	return res, nil
}

func (i *Importer) importFile(ctx context.Context, name string) (*blog.Article, error) {
	data, err := fs.ReadFile(i.fsys, name)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(name, data)
	if err != nil {
		return nil, err
	}
	a, err := doc.Article()
	if err != nil {
		return nil, err
	}
	if i.dryRun {
		return &a, nil
	}
	return i.svc.ImportArticle(ctx, a)
}
