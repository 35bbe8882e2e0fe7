package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ziadkadry99/inkpost/internal/blog"
	"github.com/ziadkadry99/inkpost/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	d, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return NewStore(d)
}

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func article(id, title string, status blog.Status, daysAgo int) blog.Article {
	return blog.Article{
		ID:       id,
		Title:    title,
		Category: "Go",
		Excerpt:  title + " excerpt",
		Content:  title + " content",
		Status:   status,
		Date:     base.AddDate(0, 0, -daysAgo),
		ImageURL: blog.PlaceholderImage,
		ReadTime: "1 min read",
	}
}

func mustInsert(t *testing.T, s *Store, articles ...blog.Article) {
	t.Helper()
	for _, a := range articles {
		if _, err := s.InsertArticle(context.Background(), a); err != nil {
			t.Fatalf("InsertArticle(%s): %v", a.ID, err)
		}
	}
}

func ids(articles []blog.Article) []string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = a.ID
	}
	return out
}

func TestInsertAndGetArticle(t *testing.T) {
	s := newTestStore(t)
	want := article("a1", "First", blog.StatusPublished, 0)
	want.ShowTimeline = true
	mustInsert(t, s, want)

	got, err := s.GetArticle(context.Background(), "a1")
	if err != nil {
		t.Fatalf("GetArticle: %v", err)
	}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("GetArticle mismatch (-want +got):\n%s", diff)
	}
}

func TestGetArticleNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetArticle(context.Background(), "nope")
	if !errors.Is(err, blog.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListArticlesOrderStatusAndLimit(t *testing.T) {
	s := newTestStore(t)
	mustInsert(t, s,
		article("old", "Old", blog.StatusPublished, 3),
		article("new", "New", blog.StatusPublished, 0),
		article("draft", "Draft", blog.StatusDraft, 1),
		article("mid", "Mid", blog.StatusPublished, 2),
	)
	ctx := context.Background()

	all, err := s.ListArticles(ctx, blog.ListOptions{})
	if err != nil {
		t.Fatalf("ListArticles: %v", err)
	}
	if diff := cmp.Diff([]string{"new", "draft", "mid", "old"}, ids(all)); diff != "" {
		t.Errorf("all (-want +got):\n%s", diff)
	}

	published, err := s.ListArticles(ctx, blog.ListOptions{Status: blog.StatusPublished, Limit: 2})
	if err != nil {
		t.Fatalf("ListArticles: %v", err)
	}
	if diff := cmp.Diff([]string{"new", "mid"}, ids(published)); diff != "" {
		t.Errorf("published (-want +got):\n%s", diff)
	}
}

func TestUpdateArticle(t *testing.T) {
	s := newTestStore(t)
	mustInsert(t, s, article("a1", "First", blog.StatusDraft, 1))

	status := blog.StatusPublished
	title := "Renamed"
	updated, err := s.UpdateArticle(context.Background(), "a1", blog.ArticleUpdate{Status: &status, Title: &title})
	if err != nil {
		t.Fatalf("UpdateArticle: %v", err)
	}
	if updated.Status != blog.StatusPublished || updated.Title != "Renamed" {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Excerpt != "First excerpt" {
		t.Errorf("untouched excerpt changed to %q", updated.Excerpt)
	}

	_, err = s.UpdateArticle(context.Background(), "nope", blog.ArticleUpdate{Title: &title})
	if !errors.Is(err, blog.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteArticle(t *testing.T) {
	s := newTestStore(t)
	mustInsert(t, s, article("a1", "First", blog.StatusPublished, 0))
	ctx := context.Background()

	if err := s.DeleteArticle(ctx, "a1"); err != nil {
		t.Fatalf("DeleteArticle: %v", err)
	}
	if err := s.DeleteArticle(ctx, "a1"); !errors.Is(err, blog.ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestComments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustInsert(t, s,
		article("a1", "First", blog.StatusPublished, 0),
		article("other", "Other", blog.StatusPublished, 1),
	)

	for i, c := range []blog.Comment{
		{ID: "c2", ArticleID: "a1", Author: "B", Content: "second", Date: base.Add(time.Hour)},
		{ID: "c1", ArticleID: "a1", Author: "A", Content: "first", Date: base},
		{ID: "x1", ArticleID: "other", Author: "X", Content: "elsewhere", Date: base},
	} {
		if err := s.InsertComment(ctx, c); err != nil {
			t.Fatalf("InsertComment %d: %v", i, err)
		}
	}

	comments, err := s.ListComments(ctx, "a1")
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	want := []blog.Comment{
		{ID: "c1", ArticleID: "a1", Author: "A", Content: "first", Date: base},
		{ID: "c2", ArticleID: "a1", Author: "B", Content: "second", Date: base.Add(time.Hour)},
	}
	if diff := cmp.Diff(want, comments); diff != "" {
		t.Errorf("ListComments (-want +got):\n%s", diff)
	}

	if err := s.DeleteComments(ctx, "a1"); err != nil {
		t.Fatalf("DeleteComments: %v", err)
	}
	comments, _ = s.ListComments(ctx, "a1")
	if len(comments) != 0 {
		t.Errorf("comments after delete = %d", len(comments))
	}
	other, _ := s.ListComments(ctx, "other")
	if len(other) != 1 {
		t.Errorf("other article lost its comment")
	}
}

func TestCommentRequiresArticle(t *testing.T) {
	s := newTestStore(t)
	err := s.InsertComment(context.Background(), blog.Comment{
		ID: "c1", ArticleID: "ghost", Author: "A", Content: "orphan", Date: base,
	})
	if err == nil {
		t.Fatal("InsertComment for a missing article succeeded")
	}
}

func TestDeleteArticleCascadesComments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustInsert(t, s, article("a1", "First", blog.StatusPublished, 0))
	if err := s.InsertComment(ctx, blog.Comment{ID: "c1", ArticleID: "a1", Author: "A", Content: "hi", Date: base}); err != nil {
		t.Fatalf("InsertComment: %v", err)
	}
	if err := s.DeleteArticle(ctx, "a1"); err != nil {
		t.Fatalf("DeleteArticle: %v", err)
	}
	comments, err := s.ListComments(ctx, "a1")
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("comments after article delete = %d, want 0", len(comments))
	}
}

func TestSearchArticles(t *testing.T) {
	s := newTestStore(t)
	a := article("a1", "Concurrency in Go", blog.StatusPublished, 1)
	b := article("b1", "Rust ownership", blog.StatusPublished, 0)
	b.Category = "Systems"
	d := article("d1", "Go draft", blog.StatusDraft, 0)
	pct := article("p1", "100% coverage", blog.StatusPublished, 2)
	mustInsert(t, s, a, b, d, pct)
	ctx := context.Background()

	tests := []struct {
		query string
		want  []string
	}{
		{"GO", []string{"a1", "p1"}},
		{"systems", []string{"b1"}},
		{"excerpt", []string{"b1", "a1", "p1"}},
		{"100%", []string{"p1"}},
		{"0%_", []string{}},
		{"missing", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := s.SearchArticles(ctx, tt.query)
			if err != nil {
				t.Fatalf("SearchArticles: %v", err)
			}
			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestPublishedCategories(t *testing.T) {
	s := newTestStore(t)
	b := article("b1", "B", blog.StatusPublished, 0)
	b.Category = "Rust"
	mustInsert(t, s,
		article("a1", "A", blog.StatusPublished, 0),
		b,
		article("d1", "D", blog.StatusDraft, 0),
	)

	names, err := s.PublishedCategories(context.Background())
	if err != nil {
		t.Fatalf("PublishedCategories: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("names = %v, want two published categories", names)
	}
}

func TestPingEmptyDatabase(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping on empty database: %v", err)
	}
}
