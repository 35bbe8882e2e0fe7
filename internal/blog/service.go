package blog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReadTime estimates reading time at WordsPerMinute, never less than a minute.
func ReadTime(content string) string {
	words := len(strings.Fields(content))
	minutes := int(math.Ceil(float64(words) / WordsPerMinute))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}

// Service is the data-access layer used by the web controllers and the CLI.
type Service struct {
	store         Store
	log           *zap.Logger
	now           func() time.Time
	newID         func() string
	retryInterval time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Data operations are traced at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how new article and comment ids are made.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithRetryInterval sets the wait between connection check attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.retryInterval = d
		}
	}
}

// NewService creates a Service over the given store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		log:           zap.NewNop(),
		now:           time.Now,
		newID:         uuid.NewString,
		retryInterval: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping runs a single connectivity check against the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// CheckConnection pings the store up to retries times, waiting the retry
// interval between attempts.
func (s *Service) CheckConnection(ctx context.Context, retries int) error {
	if retries < 1 {
		retries = 1
	}
	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		if err = s.store.Ping(ctx); err == nil {
			s.log.Debug("store connection ok", zap.Int("attempt", attempt))
			return nil
		}
		s.log.Warn("store connection failed", zap.Int("attempt", attempt), zap.Int("retries", retries), zap.Error(err))
		if attempt == retries {
			break
		}
		timer := time.NewTimer(s.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("connecting to store after %d attempts: %w", retries, err)
}

// FetchArticles lists articles, optionally filtered by status, newest first.
func (s *Service) FetchArticles(ctx context.Context, status Status, limit int) ([]Article, error) {
	if status != "" && !status.Valid() {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", status))
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	s.log.Debug("fetching articles", zap.String("status", string(status)), zap.Int("limit", limit))

	articles, err := s.store.ListArticles(ctx, ListOptions{Status: status, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("fetching articles: %w", err)
	}
	for i := range articles {
		articles[i] = withDefaults(articles[i])
	}
	s.log.Debug("fetched articles", zap.Int("count", len(articles)))
	return articles, nil
}

// FetchArticle returns one article, or ErrNotFound.
func (s *Service) FetchArticle(ctx context.Context, id string) (*Article, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("id", "article id is required")
	}
	a, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching article %s: %w", id, err)
	}
	out := withDefaults(*a)
	return &out, nil
}

// CreateArticle stores a new article after filling in defaults. The date is
// always set to now.
func (s *Service) CreateArticle(ctx context.Context, a Article) (*Article, error) {
	a.Date = time.Time{}
	return s.create(ctx, a)
}

// ImportArticle is CreateArticle for content brought in from elsewhere: a
// non-zero date is kept.
func (s *Service) ImportArticle(ctx context.Context, a Article) (*Article, error) {
	return s.create(ctx, a)
}

func (s *Service) create(ctx context.Context, a Article) (*Article, error) {
	if strings.TrimSpace(a.Title) == "" {
		return nil, invalid("title", "title is required")
	}
	if a.Status != "" && !a.Status.Valid() {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", a.Status))
	}

	if a.ID == "" {
		a.ID = s.newID()
	}
	if a.Category == "" {
		a.Category = DefaultCategory
	}
	if a.Excerpt == "" {
		a.Excerpt = a.Title
	}
	if a.Status == "" {
		a.Status = StatusPublished
	}
	if a.Date.IsZero() {
		a.Date = s.now().UTC()
	}
	a.Date = a.Date.UTC()
	a = withDefaults(a)

	s.log.Debug("creating article", zap.String("id", a.ID), zap.String("status", string(a.Status)))
	created, err := s.store.InsertArticle(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("creating article: %w", err)
	}
	return created, nil
}

// UpdateArticle applies a partial update. The date is bumped to now unless
// given, and the read time follows new non-empty content unless given.
func (s *Service) UpdateArticle(ctx context.Context, id string, u ArticleUpdate) (*Article, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("id", "article id is required")
	}
	if u.Status != nil && !u.Status.Valid() {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", *u.Status))
	}
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return nil, invalid("title", "title cannot be empty")
	}
	if u.Date == nil {
		now := s.now().UTC()
		u.Date = &now
	}
	if u.ReadTime == nil && u.Content != nil && *u.Content != "" {
		rt := ReadTime(*u.Content)
		u.ReadTime = &rt
	}

	s.log.Debug("updating article", zap.String("id", id))
	updated, err := s.store.UpdateArticle(ctx, id, u)
	if err != nil {
		return nil, fmt.Errorf("updating article %s: %w", id, err)
	}
	out := withDefaults(*updated)
	return &out, nil
}

// PublishDraft flips an article to published.
func (s *Service) PublishDraft(ctx context.Context, id string) (*Article, error) {
	status := StatusPublished
	return s.UpdateArticle(ctx, id, ArticleUpdate{Status: &status})
}

// DeleteArticle removes an article and its comments. A failure to delete
// the comments is logged and does not stop the article deletion.
func (s *Service) DeleteArticle(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid("id", "article id is required")
	}
	s.log.Debug("deleting article", zap.String("id", id))

	if err := s.store.DeleteComments(ctx, id); err != nil {
		s.log.Warn("deleting article comments", zap.String("id", id), zap.Error(err))
	}
	if err := s.store.DeleteArticle(ctx, id); err != nil {
		return fmt.Errorf("deleting article %s: %w", id, err)
	}
	return nil
}

// AddComment attaches a comment to an existing article. An unknown article
// is ErrNotFound.
func (s *Service) AddComment(ctx context.Context, articleID string, c Comment) (*Comment, error) {
	if strings.TrimSpace(articleID) == "" {
		return nil, invalid("article_id", "article id is required")
	}
	c.Content = strings.TrimSpace(c.Content)
	if c.Content == "" {
		return nil, invalid("content", "Please enter a comment")
	}
	c.Author = strings.TrimSpace(c.Author)
	if c.Author == "" {
		c.Author = DefaultAuthor
	}
	if _, err := s.store.GetArticle(ctx, articleID); err != nil {
		return nil, fmt.Errorf("adding comment to %s: %w", articleID, err)
	}
	c.ID = s.newID()
	c.ArticleID = articleID
	c.Date = s.now().UTC()

	s.log.Debug("adding comment", zap.String("article_id", articleID), zap.String("id", c.ID))
	if err := s.store.InsertComment(ctx, c); err != nil {
		return nil, fmt.Errorf("adding comment: %w", err)
	}
	return &c, nil
}

// FetchComments lists an article's comments, oldest first.
func (s *Service) FetchComments(ctx context.Context, articleID string) ([]Comment, error) {
	if strings.TrimSpace(articleID) == "" {
		return nil, invalid("article_id", "article id is required")
	}
	comments, err := s.store.ListComments(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("fetching comments: %w", err)
	}
	s.log.Debug("fetched comments", zap.String("article_id", articleID), zap.Int("count", len(comments)))
	return comments, nil
}

// Search finds published articles containing query. A blank query matches nothing.
func (s *Service) Search(ctx context.Context, query string) ([]Article, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Article{}, nil
	}
	s.log.Debug("searching articles", zap.String("query", query))

	results, err := s.store.SearchArticles(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("searching articles: %w", err)
	}
	for i := range results {
		results[i] = withDefaults(results[i])
	}
	return results, nil
}

// Categories counts published articles per category, largest first.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	names, err := s.store.PublishedCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching categories: %w", err)
	}
	counts := make(map[string]int)
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			name = DefaultCategory
		}
		counts[name]++
	}
	out := make([]Category, 0, len(counts))
	for name, n := range counts {
		out = append(out, Category{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Featured returns the n newest published articles.
func (s *Service) Featured(ctx context.Context, n int) ([]Article, error) {
	if n <= 0 {
		return []Article{}, nil
	}
	return s.FetchArticles(ctx, StatusPublished, n)
}

// Dashboard lists every article for the author view: published first,
// then newest first.
func (s *Service) Dashboard(ctx context.Context) ([]Article, error) {
	articles, err := s.FetchArticles(ctx, "", DefaultLimit)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(articles, func(i, j int) bool {
		a, b := articles[i], articles[j]
		if a.Status != b.Status {
			return a.Published()
		}
		return a.Date.After(b.Date)
	})
	return articles, nil
}

// ArticleForm is the editor submission.
type ArticleForm struct {
	ID       string
	Title    string
	Category string
	Excerpt  string
	Content  string
	ImageURL string
}

// SaveAction is what the editor asks for.
type SaveAction string

const (
	ActionPublish SaveAction = "publish"
	ActionDraft   SaveAction = "draft"
)

func (f ArticleForm) normalize() ArticleForm {
	f.ID = strings.TrimSpace(f.ID)
	f.Title = strings.TrimSpace(f.Title)
	f.Category = strings.TrimSpace(f.Category)
	f.Excerpt = strings.TrimSpace(f.Excerpt)
	f.Content = strings.TrimSpace(f.Content)
	f.ImageURL = strings.TrimSpace(f.ImageURL)
	return f
}

// Validate checks the form for the given action. Publishing needs every
// text field, a draft only needs a title.
func (f ArticleForm) Validate(action SaveAction) error {
	f = f.normalize()
	switch action {
	case ActionPublish:
		if f.Title == "" || f.Category == "" || f.Excerpt == "" || f.Content == "" {
			return invalid("form", "Please fill out all required fields")
		}
	case ActionDraft:
		if f.Title == "" {
			return invalid("title", "Please enter a title for your article")
		}
	default:
		return invalid("action", fmt.Sprintf("unknown action %q", action))
	}
	return nil
}

// SaveArticle handles an editor submission. A form carrying the id of an
// existing article updates it; otherwise a new article is created. The
// returned bool is true when an existing article was updated.
func (s *Service) SaveArticle(ctx context.Context, form ArticleForm, action SaveAction) (*Article, bool, error) {
	if err := form.Validate(action); err != nil {
		return nil, false, err
	}
	form = form.normalize()

	status := StatusPublished
	if action == ActionDraft {
		status = StatusDraft
	}
	image := form.ImageURL
	if image == "" {
		image = PlaceholderImage
	}
	category := form.Category
	if category == "" {
		category = DefaultCategory
	}

	if form.ID != "" {
		_, err := s.store.GetArticle(ctx, form.ID)
		switch {
		case err == nil:
			updated, err := s.UpdateArticle(ctx, form.ID, ArticleUpdate{
				Title:    &form.Title,
				Category: &category,
				Excerpt:  &form.Excerpt,
				Content:  &form.Content,
				Status:   &status,
				ImageURL: &image,
			})
			if err != nil {
				return nil, false, err
			}
			return updated, true, nil
		case !errors.Is(err, ErrNotFound):
			return nil, false, fmt.Errorf("looking up article %s: %w", form.ID, err)
		}
	}

	created, err := s.CreateArticle(ctx, Article{
		ID:       form.ID,
		Title:    form.Title,
		Category: category,
		Excerpt:  form.Excerpt,
		Content:  form.Content,
		Status:   status,
		ImageURL: image,
	})
	if err != nil {
		return nil, false, err
	}
	return created, false, nil
}

func withDefaults(a Article) Article {
	if a.ReadTime == "" {
		a.ReadTime = ReadTime(a.Content)
	}
	if a.ImageURL == "" {
		a.ImageURL = PlaceholderImage
	}
	return a
}
