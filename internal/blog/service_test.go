package blog_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/inkpost/internal/blog"
	"github.com/ziadkadry99/inkpost/internal/db"
	"github.com/ziadkadry99/inkpost/internal/sqlstore"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newService(t *testing.T) (*blog.Service, *sqlstore.Store) {
	t.Helper()
	d, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	store := sqlstore.NewStore(d)
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	n := 0
	svc := blog.NewService(store,
		blog.WithClock(c.now),
		blog.WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
		blog.WithRetryInterval(0),
	)
	return svc, store
}

func TestReadTime(t *testing.T) {
	tests := []struct {
		words int
		want  string
	}{
		{0, "1 min read"},
		{1, "1 min read"},
		{200, "1 min read"},
		{201, "2 min read"},
		{1000, "5 min read"},
	}
	for _, tt := range tests {
		content := strings.TrimSpace(strings.Repeat("word ", tt.words))
		assert.Equal(t, tt.want, blog.ReadTime(content), "words=%d", tt.words)
	}
}

func TestCreateArticleDefaults(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	a, err := svc.CreateArticle(ctx, blog.Article{Title: "Hello", Content: "a few words"})
	require.NoError(t, err)

	assert.Equal(t, "id-1", a.ID)
	assert.Equal(t, blog.DefaultCategory, a.Category)
	assert.Equal(t, "Hello", a.Excerpt)
	assert.Equal(t, blog.StatusPublished, a.Status)
	assert.Equal(t, blog.PlaceholderImage, a.ImageURL)
	assert.Equal(t, "1 min read", a.ReadTime)
	assert.False(t, a.ShowTimeline)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC), a.Date)

	got, err := svc.FetchArticle(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Title, got.Title)
}

func TestCreateArticleRequiresTitle(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.CreateArticle(context.Background(), blog.Article{Title: "  "})
	assert.ErrorIs(t, err, blog.ErrInvalidArgument)

	var verr *blog.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)
}

func TestFetchArticleErrors(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.FetchArticle(ctx, "")
	assert.ErrorIs(t, err, blog.ErrInvalidArgument)

	_, err = svc.FetchArticle(ctx, "missing")
	assert.ErrorIs(t, err, blog.ErrNotFound)
}

func TestFetchArticlesFillsDefaults(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	_, err := store.InsertArticle(ctx, blog.Article{
		ID: "raw", Title: "Raw", Status: blog.StatusPublished,
		Content: strings.Repeat("w ", 450), Date: time.Now().UTC(),
	})
	require.NoError(t, err)

	articles, err := svc.FetchArticles(ctx, blog.StatusPublished, 0)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "3 min read", articles[0].ReadTime)
	assert.Equal(t, blog.PlaceholderImage, articles[0].ImageURL)

	_, err = svc.FetchArticles(ctx, blog.Status("archived"), 0)
	assert.ErrorIs(t, err, blog.ErrInvalidArgument)
}

func TestUpdateArticleRecomputesReadTimeAndDate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	a, err := svc.CreateArticle(ctx, blog.Article{Title: "Hello", Content: "short"})
	require.NoError(t, err)

	content := strings.Repeat("word ", 401)
	updated, err := svc.UpdateArticle(ctx, a.ID, blog.ArticleUpdate{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "3 min read", updated.ReadTime)
	assert.True(t, updated.Date.After(a.Date))
	assert.Equal(t, "Hello", updated.Title)

	_, err = svc.UpdateArticle(ctx, "missing", blog.ArticleUpdate{Content: &content})
	assert.ErrorIs(t, err, blog.ErrNotFound)

	empty := ""
	_, err = svc.UpdateArticle(ctx, a.ID, blog.ArticleUpdate{Title: &empty})
	assert.ErrorIs(t, err, blog.ErrInvalidArgument)

	cleared, err := svc.UpdateArticle(ctx, a.ID, blog.ArticleUpdate{Content: &empty})
	require.NoError(t, err)
	assert.Empty(t, cleared.Content)
	assert.Equal(t, "3 min read", cleared.ReadTime, "clearing content keeps the previous read time")
}

func TestPublishDraft(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	draft, err := svc.CreateArticle(ctx, blog.Article{Title: "WIP", Status: blog.StatusDraft})
	require.NoError(t, err)

	published, err := svc.FetchArticles(ctx, blog.StatusPublished, 0)
	require.NoError(t, err)
	assert.Empty(t, published)

	a, err := svc.PublishDraft(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, blog.StatusPublished, a.Status)
}

func TestDeleteArticleRemovesComments(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	a, err := svc.CreateArticle(ctx, blog.Article{Title: "Hello"})
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, a.ID, blog.Comment{Content: "nice"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteArticle(ctx, a.ID))

	comments, err := store.ListComments(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	assert.ErrorIs(t, svc.DeleteArticle(ctx, a.ID), blog.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteArticle(ctx, " "), blog.ErrInvalidArgument)
}

// flakyStore fails selected operations of an embedded store.
type flakyStore struct {
	blog.Store
	pingFailures   int
	pings          int
	failComments   bool
	deletedArticle bool
}

func (f *flakyStore) Ping(ctx context.Context) error {
	f.pings++
	if f.pings <= f.pingFailures {
		return errors.New("connection refused")
	}
	return nil
}

func (f *flakyStore) DeleteComments(ctx context.Context, id string) error {
	if f.failComments {
		return errors.New("comments table missing")
	}
	return f.Store.DeleteComments(ctx, id)
}

func (f *flakyStore) DeleteArticle(ctx context.Context, id string) error {
	f.deletedArticle = true
	return nil
}

func TestDeleteArticleIgnoresCommentFailure(t *testing.T) {
	f := &flakyStore{failComments: true}
	svc := blog.NewService(f)

	require.NoError(t, svc.DeleteArticle(context.Background(), "a1"))
	assert.True(t, f.deletedArticle)
}

func TestCheckConnectionRetries(t *testing.T) {
	f := &flakyStore{pingFailures: 2}
	svc := blog.NewService(f, blog.WithRetryInterval(0))

	require.NoError(t, svc.CheckConnection(context.Background(), 3))
	assert.Equal(t, 3, f.pings)

	f = &flakyStore{pingFailures: 5}
	svc = blog.NewService(f, blog.WithRetryInterval(0))
	err := svc.CheckConnection(context.Background(), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, f.pings)
}

func TestCheckConnectionHonoursContext(t *testing.T) {
	f := &flakyStore{pingFailures: 5}
	svc := blog.NewService(f, blog.WithRetryInterval(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := svc.CheckConnection(ctx, 3)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, f.pings)
}

func TestComments(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	a, err := svc.CreateArticle(ctx, blog.Article{Title: "Hello"})
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, a.ID, blog.Comment{Content: "   "})
	var verr *blog.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Please enter a comment", verr.Message)

	first, err := svc.AddComment(ctx, a.ID, blog.Comment{Content: "  first  "})
	require.NoError(t, err)
	assert.Equal(t, blog.DefaultAuthor, first.Author)
	assert.Equal(t, "first", first.Content)

	_, err = svc.AddComment(ctx, a.ID, blog.Comment{Author: "Ann", Content: "second"})
	require.NoError(t, err)

	comments, err := svc.FetchComments(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Content)
	assert.Equal(t, "Ann", comments[1].Author)

	_, err = svc.FetchComments(ctx, "")
	assert.ErrorIs(t, err, blog.ErrInvalidArgument)
}

func TestAddCommentUnknownArticle(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	_, err := svc.AddComment(ctx, "no-such-article", blog.Comment{Content: "hello?"})
	require.ErrorIs(t, err, blog.ErrNotFound)

	comments, err := store.ListComments(ctx, "no-such-article")
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func seed(t *testing.T, svc *blog.Service) {
	t.Helper()
	ctx := context.Background()
	for _, a := range []blog.Article{
		{Title: "Go generics", Category: "Go", Content: "type parameters"},
		{Title: "Rust lifetimes", Category: "Rust", Content: "borrow checker"},
		{Title: "Go draft", Category: "Go", Status: blog.StatusDraft, Content: "unfinished"},
		{Title: "Go channels", Category: "Go", Content: "select statement"},
		{Title: "Zig comptime", Category: "Zig", Content: "compile time"},
	} {
		_, err := svc.CreateArticle(ctx, a)
		require.NoError(t, err)
	}
}

func titles(articles []blog.Article) []string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = a.Title
	}
	return out
}

func TestSearch(t *testing.T) {
	svc, _ := newService(t)
	seed(t, svc)
	ctx := context.Background()

	results, err := svc.Search(ctx, "  go ")
	require.NoError(t, err)
	assert.Equal(t, []string{"Go channels", "Go generics"}, titles(results))

	results, err = svc.Search(ctx, "BORROW")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rust lifetimes"}, titles(results))

	results, err = svc.Search(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCategories(t *testing.T) {
	svc, _ := newService(t)
	seed(t, svc)

	cats, err := svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []blog.Category{
		{Name: "Go", Count: 2},
		{Name: "Rust", Count: 1},
		{Name: "Zig", Count: 1},
	}, cats)
}

func TestFeaturedAndDashboard(t *testing.T) {
	svc, _ := newService(t)
	seed(t, svc)
	ctx := context.Background()

	featured, err := svc.Featured(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zig comptime", "Go channels", "Rust lifetimes"}, titles(featured))

	none, err := svc.Featured(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	dash, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zig comptime", "Go channels", "Rust lifetimes", "Go generics", "Go draft"}, titles(dash))
}

func TestArticleFormValidate(t *testing.T) {
	full := blog.ArticleForm{Title: "T", Category: "C", Excerpt: "E", Content: "Body"}
	titleOnly := blog.ArticleForm{Title: "T"}

	assert.NoError(t, full.Validate(blog.ActionPublish))
	assert.NoError(t, titleOnly.Validate(blog.ActionDraft))

	var verr *blog.ValidationError
	require.ErrorAs(t, titleOnly.Validate(blog.ActionPublish), &verr)
	assert.Equal(t, "Please fill out all required fields", verr.Message)

	require.ErrorAs(t, blog.ArticleForm{Content: "x"}.Validate(blog.ActionDraft), &verr)
	assert.Equal(t, "Please enter a title for your article", verr.Message)

	assert.ErrorIs(t, full.Validate(blog.SaveAction("archive")), blog.ErrInvalidArgument)
}

func TestSaveArticleCreatesThenUpdates(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	draft, updated, err := svc.SaveArticle(ctx, blog.ArticleForm{Title: " Draft "}, blog.ActionDraft)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Equal(t, blog.StatusDraft, draft.Status)
	assert.Equal(t, "Draft", draft.Title)
	assert.Equal(t, blog.DefaultCategory, draft.Category)
	assert.Equal(t, blog.PlaceholderImage, draft.ImageURL)

	form := blog.ArticleForm{
		ID: draft.ID, Title: "Final", Category: "Go", Excerpt: "Short", Content: "Long body",
		ImageURL: "https://img.example/x.png",
	}
	published, updated, err := svc.SaveArticle(ctx, form, blog.ActionPublish)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, draft.ID, published.ID)
	assert.Equal(t, blog.StatusPublished, published.Status)
	assert.Equal(t, "https://img.example/x.png", published.ImageURL)

	all, err := svc.FetchArticles(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSaveArticleUnknownIDCreates(t *testing.T) {
	svc, _ := newService(t)
	form := blog.ArticleForm{ID: "imported-1", Title: "T", Category: "C", Excerpt: "E", Content: "B"}

	a, updated, err := svc.SaveArticle(context.Background(), form, blog.ActionPublish)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Equal(t, "imported-1", a.ID)
}

func TestImportArticleKeepsDate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	when := time.Date(2019, 7, 4, 8, 30, 0, 0, time.FixedZone("EST", -5*3600))

	a, err := svc.ImportArticle(ctx, blog.Article{Title: "Old post", Content: "text", Date: when})
	require.NoError(t, err)
	assert.True(t, a.Date.Equal(when))
	assert.Equal(t, time.UTC, a.Date.Location())

	b, err := svc.CreateArticle(ctx, blog.Article{Title: "New post", Date: when})
	require.NoError(t, err)
	assert.Equal(t, 2024, b.Date.Year(), "CreateArticle always stamps the current time")
}
