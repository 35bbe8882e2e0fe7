// Package sqlstore implements blog.Store on the embedded SQLite database.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ziadkadry99/inkpost/internal/blog"
	"github.com/ziadkadry99/inkpost/internal/db"
)

const articleColumns = `id, title, category, excerpt, content, status, date, image_url, read_time, show_timeline`

// Store persists articles and comments in SQLite.
type Store struct {
	db *db.DB
}

// NewStore creates a new SQLite-backed store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

var _ blog.Store = (*Store)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (blog.Article, error) {
	var a blog.Article
	var showTimeline int
	err := row.Scan(&a.ID, &a.Title, &a.Category, &a.Excerpt, &a.Content, &a.Status, &a.Date, &a.ImageURL, &a.ReadTime, &showTimeline)
	a.ShowTimeline = showTimeline != 0
	a.Date = a.Date.UTC()
	return a, err
}

func (s *Store) queryArticles(ctx context.Context, query string, args ...any) ([]blog.Article, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	articles := []blog.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// ListArticles returns articles newest first.
func (s *Store) ListArticles(ctx context.Context, opts blog.ListOptions) ([]blog.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE 1=1`
	args := []any{}

	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, opts.Status)
	}
	query += " ORDER BY date DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	articles, err := s.queryArticles(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	return articles, nil
}

// GetArticle retrieves an article by its ID.
func (s *Store) GetArticle(ctx context.Context, id string) (*blog.Article, error) {
	a, err := scanArticle(s.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, blog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting article: %w", err)
	}
	return &a, nil
}

// InsertArticle adds a new article.
func (s *Store) InsertArticle(ctx context.Context, a blog.Article) (*blog.Article, error) {
	a.Date = a.Date.UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO articles (`+articleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.Category, a.Excerpt, a.Content, a.Status, a.Date, a.ImageURL, a.ReadTime, boolInt(a.ShowTimeline),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting article: %w", err)
	}
	return &a, nil
}

// UpdateArticle writes the set fields of u.
func (s *Store) UpdateArticle(ctx context.Context, id string, u blog.ArticleUpdate) (*blog.Article, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
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
		set("status", *u.Status)
	}
	if u.Date != nil {
		set("date", u.Date.UTC())
	}
	if u.ImageURL != nil {
		set("image_url", *u.ImageURL)
	}
	if u.ReadTime != nil {
		set("read_time", *u.ReadTime)
	}
	if u.ShowTimeline != nil {
		set("show_timeline", boolInt(*u.ShowTimeline))
	}
	if len(sets) == 0 {
		return s.GetArticle(ctx, id)
	}

	args = append(args, id)
	result, err := s.db.ExecContext(ctx,
		`UPDATE articles SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("updating article: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, blog.ErrNotFound
	}
	return s.GetArticle(ctx, id)
}

// DeleteArticle removes an article row. Comments are removed separately.
func (s *Store) DeleteArticle(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting article: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return blog.ErrNotFound
	}
	return nil
}

// ListComments returns an article's comments, oldest first.
func (s *Store) ListComments(ctx context.Context, articleID string) ([]blog.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, article_id, author, content, date FROM comments WHERE article_id = ? ORDER BY date ASC`, articleID)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	defer rows.Close()

	comments := []blog.Comment{}
	for rows.Next() {
		var c blog.Comment
		if err := rows.Scan(&c.ID, &c.ArticleID, &c.Author, &c.Content, &c.Date); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		c.Date = c.Date.UTC()
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// InsertComment adds a comment.
func (s *Store) InsertComment(ctx context.Context, c blog.Comment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (id, article_id, author, content, date) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.ArticleID, c.Author, c.Content, c.Date.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting comment: %w", err)
	}
	return nil
}

// DeleteComments removes every comment on an article.
func (s *Store) DeleteComments(ctx context.Context, articleID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE article_id = ?`, articleID); err != nil {
		return fmt.Errorf("deleting comments: %w", err)
	}
	return nil
}

// SearchArticles matches published articles. SQLite LIKE folds ASCII case.
func (s *Store) SearchArticles(ctx context.Context, query string) ([]blog.Article, error) {
	pattern := "%" + escapeLike(query) + "%"
	articles, err := s.queryArticles(ctx,
		`SELECT `+articleColumns+` FROM articles
		 WHERE status = ?
		   AND (title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\' OR excerpt LIKE ? ESCAPE '\' OR category LIKE ? ESCAPE '\')
		 ORDER BY date DESC`,
		blog.StatusPublished, pattern, pattern, pattern, pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("searching articles: %w", err)
	}
	return articles, nil
}

// PublishedCategories returns the category of each published article.
func (s *Store) PublishedCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category FROM articles WHERE status = ?`, blog.StatusPublished)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Ping selects a single article id.
func (s *Store) Ping(ctx context.Context) error {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM articles LIMIT 1`).Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
