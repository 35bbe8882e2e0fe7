package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/inkpost/internal/blog"
	"github.com/ziadkadry99/inkpost/internal/httpx"
)

// recorded is one request seen by the fake server.
type recorded struct {
	Method string
	Path   string
	Query  map[string]string
	Header http.Header
	Body   string
}

type fakeServer struct {
	t        *testing.T
	mu       sync.Mutex
	requests []recorded
	respond  func(w http.ResponseWriter, r recorded)
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	rec := recorded{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  map[string]string{},
		Header: r.Header.Clone(),
		Body:   string(body),
	}
	for k := range r.URL.Query() {
		rec.Query[k] = r.URL.Query().Get(k)
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()
	f.respond(w, rec)
}

func (f *fakeServer) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(f.t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newTestStore(t *testing.T, respond func(w http.ResponseWriter, r recorded)) (*Store, *fakeServer) {
	t.Helper()
	fake := &fakeServer{t: t, respond: respond}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := New(Config{URL: srv.URL, Key: "anon-key"},
		WithRetryPolicy(httpx.RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}))
	require.NoError(t, err)
	return store, fake
}

func writeJSON(w http.ResponseWriter, status int, v string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, v)
}

const articleJSON = `{"id":"a1","title":"Hello","category":"Go","excerpt":"ex","content":"body",
"status":"published","date":"2024-03-01T10:00:00+00:00","imageUrl":"/img.png","readTime":"1 min read","showTimeline":true}`

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Key: "k"})
	assert.Error(t, err)
	_, err = New(Config{URL: "https://x.supabase.co"})
	assert.Error(t, err)
}

func TestRestURL(t *testing.T) {
	assert.Equal(t, "https://x.supabase.co/rest/v1/", restURL("https://x.supabase.co"))
	assert.Equal(t, "https://x.supabase.co/rest/v1/", restURL("https://x.supabase.co/"))
	assert.Equal(t, "http://localhost:3000/rest/v1/", restURL("http://localhost:3000/rest/v1"))
}

func TestListArticlesQuery(t *testing.T) {
	store, fake := newTestStore(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusOK, "["+articleJSON+"]")
	})

	articles, err := store.ListArticles(context.Background(), blog.ListOptions{Status: blog.StatusPublished, Limit: 50})
	require.NoError(t, err)
	require.Len(t, articles, 1)

	a := articles[0]
	assert.Equal(t, "a1", a.ID)
	assert.True(t, a.ShowTimeline)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), a.Date)

	req := fake.last()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/rest/v1/articles", req.Path)
	assert.Equal(t, map[string]string{
		"select": "*",
		"status": "eq.published",
		"order":  "date.desc",
		"limit":  "50",
	}, req.Query)
	assert.Equal(t, "anon-key", req.Header.Get("apikey"))
	assert.Equal(t, "Bearer anon-key", req.Header.Get("Authorization"))
}

func TestListArticlesWithoutStatus(t *testing.T) {
	store, fake := newTestStore(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusOK, "[]")
	})

	articles, err := store.ListArticles(context.Background(), blog.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, articles)
	_, hasStatus := fake.last().Query["status"]
	assert.False(t, hasStatus)
}

func TestGetArticleNotFound(t *testing.T) {
	store, fake := newTestStore(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusNotAcceptable,
			`{"code":"PGRST116","details":"The result contains 0 rows","hint":null,"message":"JSON object requested, multiple (or no) rows returned"}`)
	})

	_, err := store.GetArticle(context.Background(), "missing")
	assert.ErrorIs(t, err, blog.ErrNotFound)

	req := fake.last()
	assert.Equal(t, "eq.missing", req.Query["id"])
	assert.Equal(t, mediaObject, req.Header.Get("Accept"))
}

func TestGetArticle(t *testing.T) {
	store, _ := newTestStore(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusOK, articleJSON)
	})

	a, err := store.GetArticle(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "Hello", a.Title)
}

func TestInsertArticleIsNotRetried(t *testing.T) {
	store, fake := newTestStore(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusServiceUnavailable, `{"message":"down"}`)
	})

	_, err := store.InsertArticle(context.Background(), blog.Article{ID: "a1", Title: "Hello"})
	require.Error(t, err)

	var pgErr *Error
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, http.StatusServiceUnavailable, pgErr.Status)
	assert.Equal(t, "down", pgErr.Message)
	assert.Len(t, fake.requests, 1)
}

func TestInsertArticleReturnsRepresentation(t *testing.T) {
	store, fake := newTestStore(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusCreated, "["+articleJSON+"]")
	})

	created, err := store.InsertArticle(context.Background(), blog.Article{
		ID: "a1", Title: "Hello", Status: blog.StatusPublished,
		Date: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "Go", created.Category)

	req := fake.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "return=representation", req.Header.Get("Prefer"))

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &sent))
	assert.Equal(t, "Hello", sent["title"])
	assert.Equal(t, "2024-03-01T10:00:00Z", sent["date"])
	assert.Contains(t, sent, "imageUrl")
}

func TestUpdateArticleSendsOnlySetFields(t *testing.T) {
	store, fake := newTestStore(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusOK, "["+articleJSON+"]")
	})

	status := blog.StatusPublished
	_, err := store.UpdateArticle(context.Background(), "a1", blog.ArticleUpdate{Status: &status})
	require.NoError(t, err)

	req := fake.last()
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "eq.a1", req.Query["id"])
	assert.JSONEq(t, `{"status":"published"}`, req.Body)
}

func TestUpdateArticleNotFound(t *testing.T) {
	store, _ := newTestStore(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusOK, "[]")
	})

	title := "x"
	_, err := store.UpdateArticle(context.Background(), "nope", blog.ArticleUpdate{Title: &title})
	assert.ErrorIs(t, err, blog.ErrNotFound)
}

func TestDeleteArticle(t *testing.T) {
	var deleted bool
	store, fake := newTestStore(t, func(w http.ResponseWriter, r recorded) {
		if deleted {
			writeJSON(w, http.StatusOK, "[]")
			return
		}
		deleted = true
		writeJSON(w, http.StatusOK, `[{"id":"a1"}]`)
	})

	require.NoError(t, store.DeleteArticle(context.Background(), "a1"))
	req := fake.last()
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "eq.a1", req.Query["id"])

	assert.ErrorIs(t, store.DeleteArticle(context.Background(), "a1"), blog.ErrNotFound)
}

func TestCommentRequests(t *testing.T) {
	store, fake := newTestStore(t, func(w http.ResponseWriter, r recorded) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK,
				`[{"id":"c1","article_id":"a1","author":"Ann","content":"hi","date":"2024-03-01T10:00:00.123"}]`)
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	comments, err := store.ListComments(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Ann", comments[0].Author)
	assert.Equal(t, 123*time.Millisecond, time.Duration(comments[0].Date.Nanosecond()))
	assert.Equal(t, "date.asc", fake.last().Query["order"])
	assert.Equal(t, "eq.a1", fake.last().Query["article_id"])

	require.NoError(t, store.InsertComment(ctx, blog.Comment{ID: "c2", ArticleID: "a1", Content: "yo"}))
	assert.Equal(t, "/rest/v1/comments", fake.last().Path)
	assert.Contains(t, fake.last().Body, `"article_id":"a1"`)

	require.NoError(t, store.DeleteComments(ctx, "a1"))
	assert.Equal(t, http.MethodDelete, fake.last().Method)
	assert.Equal(t, map[string]string{"article_id": "eq.a1"}, fake.last().Query)
}

func TestSearchArticlesQuotesReservedCharacters(t *testing.T) {
	store, fake := newTestStore(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusOK, "[]")
	})

	_, err := store.SearchArticles(context.Background(), "go, rust")
	require.NoError(t, err)

	req := fake.last()
	assert.Equal(t, "eq.published", req.Query["status"])
	assert.Equal(t,
		`(title.ilike."*go, rust*",content.ilike."*go, rust*",excerpt.ilike."*go, rust*",category.ilike."*go, rust*")`,
		req.Query["or"])
}

func TestSearchArticlesEscapesLikeWildcards(t *testing.T) {
	store, fake := newTestStore(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusOK, "[]")
	})

	tests := []struct {
		term string
		want string
	}{
		{"100%", `title.ilike."*100\\%*"`},
		{"snake_case", `title.ilike."*snake\\_case*"`},
		{`a\b`, `title.ilike."*a\\\\b*"`},
	}
	for _, tt := range tests {
		_, err := store.SearchArticles(context.Background(), tt.term)
		require.NoError(t, err)
		assert.Contains(t, fake.last().Query["or"], tt.want+",", tt.term)
	}
}

func TestSearchArticlesPlainTerm(t *testing.T) {
	store, fake := newTestStore(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusOK, "["+articleJSON+"]")
	})

	results, err := store.SearchArticles(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t,
		`(title.ilike.*hello*,content.ilike.*hello*,excerpt.ilike.*hello*,category.ilike.*hello*)`,
		fake.last().Query["or"])
}

func TestPublishedCategories(t *testing.T) {
	store, fake := newTestStore(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusOK, `[{"category":"Go"},{"category":"Go"},{"category":"Rust"}]`)
	})

	names, err := store.PublishedCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Go", "Rust"}, names)
	assert.Equal(t, "category", fake.last().Query["select"])
}

func TestPingRetriesTransientFailures(t *testing.T) {
	var calls int
	store, fake := newTestStore(t, func(w http.ResponseWriter, r recorded) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, `[{"id":"a1"}]`)
	})

	require.NoError(t, store.Ping(context.Background()))
	assert.Equal(t, 2, calls)
	assert.Equal(t, map[string]string{"select": "id", "limit": "1"}, fake.last().Query)
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Status: 404, Code: "42P01", Message: `relation "articles" does not exist`}
	assert.Equal(t, `postgrest: relation "articles" does not exist (code 42P01, status 404)`, err.Error())
	assert.False(t, errors.Is(err, blog.ErrNotFound))

	err = &Error{Status: 502}
	assert.Equal(t, "postgrest: Bad Gateway (status 502)", err.Error())
}
