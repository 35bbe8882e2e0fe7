// Package pgstore implements blog.Store on a direct Postgres connection,
// using the same tables PostgREST serves.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ziadkadry99/inkpost/internal/blog"
)

const articleColumns = `id, title, category, excerpt, content, status, date, "imageUrl", "readTime", "showTimeline"`

// querier is the subset of pgxpool.Pool the store needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists articles and comments in Postgres.
type Store struct {
	pool *pgxpool.Pool
	db   querier
}

var _ blog.Store = (*Store)(nil)

// Open connects to the database at dsn.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return New(pool), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the articles and comments tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS articles (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT 'Uncategorized',
    excerpt TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'published' CHECK (status IN ('draft', 'published')),
    date TIMESTAMPTZ NOT NULL DEFAULT now(),
    "imageUrl" TEXT NOT NULL DEFAULT '',
    "readTime" TEXT NOT NULL DEFAULT '',
    "showTimeline" BOOLEAN NOT NULL DEFAULT false
);
CREATE INDEX IF NOT EXISTS articles_status_date_idx ON articles (status, date DESC);

CREATE TABLE IF NOT EXISTS comments (
    id TEXT PRIMARY KEY,
    article_id TEXT NOT NULL,
    author TEXT NOT NULL DEFAULT 'Guest User',
    content TEXT NOT NULL,
    date TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS comments_article_date_idx ON comments (article_id, date);
`

func scanArticle(row pgx.Row) (blog.Article, error) {
	var a blog.Article
	err := row.Scan(&a.ID, &a.Title, &a.Category, &a.Excerpt, &a.Content, &a.Status, &a.Date, &a.ImageURL, &a.ReadTime, &a.ShowTimeline)
	a.Date = a.Date.UTC()
	return a, err
}

func (s *Store) queryArticles(ctx context.Context, query string, args ...any) ([]blog.Article, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	articles := []blog.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating articles: %w", err)
	}
	return articles, nil
}

// ListArticles returns articles newest first.
func (s *Store) ListArticles(ctx context.Context, opts blog.ListOptions) ([]blog.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles`
	var args []any
	if opts.Status != "" {
		args = append(args, string(opts.Status))
		query += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	query += " ORDER BY date DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	articles, err := s.queryArticles(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return articles, nil
}

// GetArticle retrieves an article by its ID.
func (s *Store) GetArticle(ctx context.Context, id string) (*blog.Article, error) {
	a, err := scanArticle(s.db.QueryRow(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, blog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return &a, nil
}

// InsertArticle adds a new article and returns the stored row.
func (s *Store) InsertArticle(ctx context.Context, a blog.Article) (*blog.Article, error) {
	created, err := scanArticle(s.db.QueryRow(ctx,
		`INSERT INTO articles (`+articleColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+articleColumns,
		a.ID, a.Title, a.Category, a.Excerpt, a.Content, string(a.Status), a.Date, a.ImageURL, a.ReadTime, a.ShowTimeline,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert article: %w", err)
	}
	return &created, nil
}

// buildUpdate renders the SET clause for u. Placeholders start at $1.
func buildUpdate(u blog.ArticleUpdate) (string, []any) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.Title != nil {
		set("title", *u.Title)
	}
	if u.Category != nil {
		set("category", *u.Category)
	}
	if u.Excerpt != nil {
		set("excerpt", *u.Excerpt)
	}
	if u.Content != nil {
		set("content", *u.Content)
	}
	if u.Status != nil {
		set("status", string(*u.Status))
	}
	if u.Date != nil {
		set("date", *u.Date)
	}
	if u.ImageURL != nil {
		set(`"imageUrl"`, *u.ImageURL)
	}
	if u.ReadTime != nil {
		set(`"readTime"`, *u.ReadTime)
	}
	if u.ShowTimeline != nil {
		set(`"showTimeline"`, *u.ShowTimeline)
	}
	return strings.Join(sets, ", "), args
}

// UpdateArticle writes the set fields of u and returns the updated row.
func (s *Store) UpdateArticle(ctx context.Context, id string, u blog.ArticleUpdate) (*blog.Article, error) {
	sets, args := buildUpdate(u)
	if sets == "" {
		return s.GetArticle(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE articles SET %s WHERE id = $%d RETURNING %s`, sets, len(args), articleColumns)

	updated, err := scanArticle(s.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, blog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update article: %w", err)
	}
	return &updated, nil
}

// DeleteArticle removes an article row. Comments are removed separately.
func (s *Store) DeleteArticle(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return blog.ErrNotFound
	}
	return nil
}

// ListComments returns an article's comments, oldest first.
func (s *Store) ListComments(ctx context.Context, articleID string) ([]blog.Comment, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, article_id, author, content, date FROM comments WHERE article_id = $1 ORDER BY date ASC`, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := []blog.Comment{}
	for rows.Next() {
		var c blog.Comment
		if err := rows.Scan(&c.ID, &c.ArticleID, &c.Author, &c.Content, &c.Date); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.Date = c.Date.UTC()
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}
	return comments, nil
}

// InsertComment adds a comment.
func (s *Store) InsertComment(ctx context.Context, c blog.Comment) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO comments (id, article_id, author, content, date) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.ArticleID, c.Author, c.Content, c.Date,
	)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// DeleteComments removes every comment on an article.
func (s *Store) DeleteComments(ctx context.Context, articleID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM comments WHERE article_id = $1`, articleID); err != nil {
		return fmt.Errorf("failed to delete comments: %w", err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchArticles matches published articles with ILIKE.
func (s *Store) SearchArticles(ctx context.Context, query string) ([]blog.Article, error) {
	pattern := "%" + likeEscaper.Replace(query) + "%"
	articles, err := s.queryArticles(ctx,
		`SELECT `+articleColumns+` FROM articles
		 WHERE status = $1
		   AND (title ILIKE $2 OR content ILIKE $2 OR excerpt ILIKE $2 OR category ILIKE $2)
		 ORDER BY date DESC`,
		string(blog.StatusPublished), pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search articles: %w", err)
	}
	return articles, nil
}

// PublishedCategories returns the category of each published article.
func (s *Store) PublishedCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT category FROM articles WHERE status = $1`, string(blog.StatusPublished))
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect categories: %w", err)
	}
	return names, nil
}

// Ping selects a single article id.
func (s *Store) Ping(ctx context.Context) error {
	var id string
	err := s.db.QueryRow(ctx, `SELECT id FROM articles LIMIT 1`).Scan(&id)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}
	return nil
}
