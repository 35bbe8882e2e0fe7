// Package postgrest implements blog.Store against a PostgREST endpoint, the
// REST interface Supabase exposes under /rest/v1.
package postgrest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/inkpost/internal/blog"
	"github.com/ziadkadry99/inkpost/internal/httpx"
)

const (
	articlesTable = "articles"
	commentsTable = "comments"

	mediaObject = "application/vnd.pgrst.object+json"
)

var searchColumns = []string{"title", "content", "excerpt", "category"}

// Config holds the connection settings of a Store.
type Config struct {
	// URL is the project URL, e.g. https://xyz.supabase.co. A URL that
	// already ends in /rest/v1 is used as is.
	URL string
	// Key is sent as both the apikey header and the bearer token.
	Key     string
	Timeout time.Duration
}

// Option configures a Store.
type Option func(*options)

type options struct {
	log         *zap.Logger
	retryPolicy *httpx.RetryPolicy
	httpClient  *http.Client
}

// WithLogger logs transport retries.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithRetryPolicy overrides the transport retry policy.
func WithRetryPolicy(p httpx.RetryPolicy) Option {
	return func(o *options) { o.retryPolicy = &p }
}

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// Store talks to the articles and comments tables over PostgREST.
type Store struct {
	client *httpx.Client
	log    *zap.Logger
}

var _ blog.Store = (*Store)(nil)

// New creates a Store for the given project.
func New(cfg Config, opts ...Option) (*Store, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("postgrest: URL is required")
	}
	if strings.TrimSpace(cfg.Key) == "" {
		return nil, errors.New("postgrest: key is required")
	}

	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}

	headers := http.Header{}
	headers.Set("apikey", cfg.Key)
	headers.Set("Authorization", "Bearer "+cfg.Key)
	headers.Set("Accept", "application/json")

	clientOpts := []httpx.Option{
		httpx.WithHeaders(headers),
		httpx.WithTimeout(cfg.Timeout),
		httpx.WithRetryHook(func(attempt int, delay time.Duration, err error) {
			o.log.Warn("retrying store request",
				zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))
		}),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, httpx.WithHTTPClient(o.httpClient))
	}
	if o.retryPolicy != nil {
		clientOpts = append(clientOpts, httpx.WithRetryPolicy(*o.retryPolicy))
	}

	client, err := httpx.NewClient(restURL(cfg.URL), clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("postgrest: %w", err)
	}
	return &Store{client: client, log: o.log}, nil
}

func restURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.HasSuffix(base, "/rest/v1") {
		return base + "/"
	}
	return base + "/rest/v1/"
}

func (s *Store) do(ctx context.Context, req *httpx.Request, out any) error {
	if err := s.client.DoJSON(ctx, req, out); err != nil {
		return fromHTTP(err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, table string, q *query, out any) error {
	return s.do(ctx, &httpx.Request{Method: http.MethodGet, Path: table, Query: q.values()}, out)
}

func returnRepresentation() http.Header {
	h := http.Header{}
	h.Set("Prefer", "return=representation")
	return h
}

// ListArticles returns articles newest first.
func (s *Store) ListArticles(ctx context.Context, opts blog.ListOptions) ([]blog.Article, error) {
	q := newQuery("*").order("date", true).limit(opts.Limit)
	if opts.Status != "" {
		q.eq("status", string(opts.Status))
	}
	var rows []articleRow
	if err := s.get(ctx, articlesTable, q, &rows); err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	return toArticles(rows), nil
}

// GetArticle reads a single article with the object media type, so an
// unknown id comes back as PGRST116.
func (s *Store) GetArticle(ctx context.Context, id string) (*blog.Article, error) {
	var row articleRow
	err := s.do(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   articlesTable,
		Query:  newQuery("*").eq("id", id).values(),
		Header: http.Header{"Accept": {mediaObject}},
	}, &row)
	if errors.Is(err, blog.ErrNotFound) {
		return nil, blog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting article: %w", err)
	}
	a := row.article()
	return &a, nil
}

// InsertArticle adds a new article and returns the stored row. Inserts are
// not retried.
func (s *Store) InsertArticle(ctx context.Context, a blog.Article) (*blog.Article, error) {
	body, err := httpx.JSONBody(a)
	if err != nil {
		return nil, fmt.Errorf("encoding article: %w", err)
	}
	var rows []articleRow
	err = s.do(ctx, &httpx.Request{
		Method:       http.MethodPost,
		Path:         articlesTable,
		Header:       returnRepresentation(),
		Body:         body,
		DisableRetry: true,
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("inserting article: %w", err)
	}
	if len(rows) == 0 {
		return &a, nil
	}
	created := rows[0].article()
	return &created, nil
}

// UpdateArticle patches the set fields of u and returns the updated row.
func (s *Store) UpdateArticle(ctx context.Context, id string, u blog.ArticleUpdate) (*blog.Article, error) {
	if u.Empty() {
		return s.GetArticle(ctx, id)
	}
	body, err := httpx.JSONBody(u)
	if err != nil {
		return nil, fmt.Errorf("encoding update: %w", err)
	}
	var rows []articleRow
	err = s.do(ctx, &httpx.Request{
		Method: http.MethodPatch,
		Path:   articlesTable,
		Query:  newQuery("*").eq("id", id).values(),
		Header: returnRepresentation(),
		Body:   body,
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("updating article: %w", err)
	}
	if len(rows) == 0 {
		return nil, blog.ErrNotFound
	}
	updated := rows[0].article()
	return &updated, nil
}

// DeleteArticle removes an article row. Comments are removed separately.
func (s *Store) DeleteArticle(ctx context.Context, id string) error {
	var rows []struct {
		ID string `json:"id"`
	}
	err := s.do(ctx, &httpx.Request{
		Method: http.MethodDelete,
		Path:   articlesTable,
		Query:  newQuery("id").eq("id", id).values(),
		Header: returnRepresentation(),
	}, &rows)
	if err != nil {
		return fmt.Errorf("deleting article: %w", err)
	}
	if len(rows) == 0 {
		return blog.ErrNotFound
	}
	return nil
}

// ListComments returns an article's comments, oldest first.
func (s *Store) ListComments(ctx context.Context, articleID string) ([]blog.Comment, error) {
	var rows []commentRow
	q := newQuery("*").eq("article_id", articleID).order("date", false)
	if err := s.get(ctx, commentsTable, q, &rows); err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	comments := make([]blog.Comment, len(rows))
	for i, r := range rows {
		comments[i] = r.comment()
	}
	return comments, nil
}

// InsertComment adds a comment. Inserts are not retried.
func (s *Store) InsertComment(ctx context.Context, c blog.Comment) error {
	body, err := httpx.JSONBody(c)
	if err != nil {
		return fmt.Errorf("encoding comment: %w", err)
	}
	err = s.do(ctx, &httpx.Request{
		Method:       http.MethodPost,
		Path:         commentsTable,
		Header:       http.Header{"Prefer": {"return=minimal"}},
		Body:         body,
		DisableRetry: true,
	}, nil)
	if err != nil {
		return fmt.Errorf("inserting comment: %w", err)
	}
	return nil
}

// DeleteComments removes every comment on an article.
func (s *Store) DeleteComments(ctx context.Context, articleID string) error {
	err := s.do(ctx, &httpx.Request{
		Method: http.MethodDelete,
		Path:   commentsTable,
		Query:  newFilter().eq("article_id", articleID).values(),
	}, nil)
	if err != nil {
		return fmt.Errorf("deleting comments: %w", err)
	}
	return nil
}

// SearchArticles matches published articles on title, content, excerpt or
// category with ilike.
func (s *Store) SearchArticles(ctx context.Context, term string) ([]blog.Article, error) {
	q := newQuery("*").
		eq("status", string(blog.StatusPublished)).
		ilikeAny(term, searchColumns...).
		order("date", true)
	var rows []articleRow
	if err := s.get(ctx, articlesTable, q, &rows); err != nil {
		return nil, fmt.Errorf("searching articles: %w", err)
	}
	return toArticles(rows), nil
}

// PublishedCategories returns the category of each published article.
func (s *Store) PublishedCategories(ctx context.Context) ([]string, error) {
	var rows []struct {
		Category string `json:"category"`
	}
	q := newQuery("category").eq("status", string(blog.StatusPublished))
	if err := s.get(ctx, articlesTable, q, &rows); err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Category
	}
	return names, nil
}

// Ping selects a single article id.
func (s *Store) Ping(ctx context.Context) error {
	var rows []struct {
		ID string `json:"id"`
	}
	if err := s.get(ctx, articlesTable, newQuery("id").limit(1), &rows); err != nil {
		return fmt.Errorf("pinging store: %w", err)
	}
	return nil
}
