package blog

import (
	"context"
	"time"
)

// Status is the publication state of an article.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

const (
	// DefaultLimit caps every article listing.
	DefaultLimit = 50
	// PlaceholderImage is served by the web layer for articles without an image.
	PlaceholderImage = "/api/placeholder/800/400"
	DefaultCategory  = "Uncategorized"
	DefaultAuthor    = "Guest User"
	WordsPerMinute   = 200
)

// Article is a blog post. JSON names match the columns of the remote store.
type Article struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	Excerpt      string    `json:"excerpt"`
	Content      string    `json:"content"`
	Status       Status    `json:"status"`
	Date         time.Time `json:"date"`
	ImageURL     string    `json:"imageUrl"`
	ReadTime     string    `json:"readTime"`
	ShowTimeline bool      `json:"showTimeline"`
}

// Published reports whether the article is publicly visible.
func (a Article) Published() bool { return a.Status == StatusPublished }

// ArticleUpdate is a partial update. Nil fields are left untouched.
type ArticleUpdate struct {
	Title        *string    `json:"title,omitempty"`
	Category     *string    `json:"category,omitempty"`
	Excerpt      *string    `json:"excerpt,omitempty"`
	Content      *string    `json:"content,omitempty"`
	Status       *Status    `json:"status,omitempty"`
	Date         *time.Time `json:"date,omitempty"`
	ImageURL     *string    `json:"imageUrl,omitempty"`
	ReadTime     *string    `json:"readTime,omitempty"`
	ShowTimeline *bool      `json:"showTimeline,omitempty"`
}

// Empty reports whether no field is set.
func (u ArticleUpdate) Empty() bool {
	return u.Title == nil && u.Category == nil && u.Excerpt == nil && u.Content == nil &&
		u.Status == nil && u.Date == nil && u.ImageURL == nil && u.ReadTime == nil && u.ShowTimeline == nil
}

// Comment is a reader comment attached to an article.
type Comment struct {
	ID        string    `json:"id"`
	ArticleID string    `json:"article_id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Date      time.Time `json:"date"`
}

// Category is a category name with the number of published articles in it.
type Category struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ListOptions filters an article listing.
type ListOptions struct {
	Status Status // empty means any status
	Limit  int
}

// Store is the storage backend behind the Service. Implementations only
// persist and query; defaulting and validation happen in the Service.
type Store interface {
	// ListArticles returns articles ordered by date, newest first.
	ListArticles(ctx context.Context, opts ListOptions) ([]Article, error)
	// GetArticle returns ErrNotFound when no article has the id.
	GetArticle(ctx context.Context, id string) (*Article, error)
	InsertArticle(ctx context.Context, a Article) (*Article, error)
	// UpdateArticle returns ErrNotFound when no article has the id.
	UpdateArticle(ctx context.Context, id string, u ArticleUpdate) (*Article, error)
	// DeleteArticle returns ErrNotFound when no article has the id.
	DeleteArticle(ctx context.Context, id string) error

	// ListComments returns comments ordered by date, oldest first.
	ListComments(ctx context.Context, articleID string) ([]Comment, error)
	InsertComment(ctx context.Context, c Comment) error
	DeleteComments(ctx context.Context, articleID string) error

	// SearchArticles matches published articles whose title, content, excerpt
	// or category contains query, case-insensitively. Newest first.
	SearchArticles(ctx context.Context, query string) ([]Article, error)
	// PublishedCategories returns the category of every published article.
	PublishedCategories(ctx context.Context) ([]string, error)

	Ping(ctx context.Context) error
}
