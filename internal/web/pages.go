package web

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/inkpost/internal/blog"
	"github.com/ziadkadry99/inkpost/internal/live"
)

func (h *Handler) page(w http.ResponseWriter, r *http.Request, status int, name, title, active string, data any) {
	h.pageWithFlash(w, r, status, name, title, active, data, nil)
}

// pageWithFlash renders a page with an immediate notification instead of
// the one carried over from a redirect.
func (h *Handler) pageWithFlash(w http.ResponseWriter, r *http.Request, status int, name, title, active string, data any, flash *Flash) {
	pending := popFlash(w, r)
	if flash == nil {
		flash = pending
	}
	pd := PageData{
		Title:       title,
		SiteTitle:   h.opts.SiteTitle,
		Active:      active,
		CurrentPath: r.URL.RequestURI(),
		Theme:       themeOf(r),
		Flash:       flash,
		Data:        data,
	}
	if err := h.pages.execute(w, status, name, pd); err != nil {
		h.log.Error("rendering page", zap.String("page", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.page(w, r, status, "error", message, "", map[string]any{
		"Status":  status,
		"Message": message,
	})
}

// homeData feeds the home page.
type homeData struct {
	Featured   []blog.Article
	Articles   []blog.Article
	Categories []blog.Category
	Category   string
	Error      string
}

func filterCategory(articles []blog.Article, category string) []blog.Article {
	if category == "" || strings.EqualFold(category, "all") {
		return articles
	}
	out := make([]blog.Article, 0, len(articles))
	for _, a := range articles {
		if a.Category == category {
			out = append(out, a)
		}
	}
	return out
}

func (h *Handler) loadListing(r *http.Request, withFeatured bool) (homeData, error) {
	var d homeData
	d.Category = strings.TrimSpace(r.URL.Query().Get("category"))
	if strings.EqualFold(d.Category, "all") {
		d.Category = ""
	}

	g, ctx := errgroup.WithContext(r.Context())
	if withFeatured {
		g.Go(func() error {
			var err error
			d.Featured, err = h.svc.Featured(ctx, h.opts.FeaturedCount)
			return err
		})
	}
	g.Go(func() error {
		articles, err := h.svc.FetchArticles(ctx, blog.StatusPublished, blog.DefaultLimit)
		if err != nil {
			return err
		}
		d.Articles = filterCategory(articles, d.Category)
		return nil
	})
	g.Go(func() error {
		var err error
		d.Categories, err = h.svc.Categories(ctx)
		return err
	})
	return d, g.Wait()
}

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	d, err := h.loadListing(r, true)
	if err != nil {
		h.log.Error("loading home page", zap.Error(err))
		d = homeData{Error: "Failed to load articles"}
	}
	h.page(w, r, http.StatusOK, "home", "Home", "home", d)
}

func (h *Handler) handleBlog(w http.ResponseWriter, r *http.Request) {
	d, err := h.loadListing(r, false)
	if err != nil {
		h.log.Error("loading blog page", zap.Error(err))
		d = homeData{Error: "Failed to load articles"}
	}
	h.page(w, r, http.StatusOK, "blog", "Blog", "blog", d)
}

// postData feeds the post page.
type postData struct {
	Article  *blog.Article
	Body     template.HTML
	Comments []blog.Comment
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	article, err := h.svc.FetchArticle(ctx, id)
	if errors.Is(err, blog.ErrNotFound) {
		h.renderError(w, r, http.StatusNotFound, "Article not found")
		return
	}
	if err != nil {
		h.log.Error("loading article", zap.String("id", id), zap.Error(err))
		h.renderError(w, r, http.StatusInternalServerError, "Failed to load article")
		return
	}

	body, err := h.md.Markdown(article.Content)
	if err != nil {
		h.log.Error("rendering article", zap.String("id", id), zap.Error(err))
		h.renderError(w, r, http.StatusInternalServerError, "Failed to load article")
		return
	}

	comments, err := h.svc.FetchComments(ctx, id)
	if err != nil {
		// The article is still worth showing without its comments.
		h.log.Warn("loading comments", zap.String("id", id), zap.Error(err))
		comments = nil
	}

	h.page(w, r, http.StatusOK, "post", article.Title, "blog", postData{
		Article:  article,
		Body:     body,
		Comments: comments,
	})
}

func (h *Handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := "/posts/" + url.PathEscape(id) + "#comments"

	_, err := h.svc.AddComment(r.Context(), id, blog.Comment{
		Author:  r.FormValue("author"),
		Content: r.FormValue("content"),
	})
	var verr *blog.ValidationError
	switch {
	case errors.As(err, &verr):
		setFlash(w, "error", verr.Message)
	case errors.Is(err, blog.ErrNotFound):
		h.renderError(w, r, http.StatusNotFound, "Article not found")
		return
	case err != nil:
		h.log.Error("adding comment", zap.String("id", id), zap.Error(err))
		setFlash(w, "error", "Failed to add comment")
	default:
		setFlash(w, "success", "Comment added successfully")
		h.publish(live.CommentAdded, id)
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// searchData feeds the search results page.
type searchData struct {
	Query   string
	Results []blog.Article
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	results, err := h.svc.Search(r.Context(), q)
	if err != nil {
		h.log.Error("searching articles", zap.String("query", q), zap.Error(err))
		setFlash(w, "error", "Search failed")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.page(w, r, http.StatusOK, "search", fmt.Sprintf("Search: %s", q), "", searchData{Query: q, Results: results})
}

func (h *Handler) handleNewsletter(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSpace(r.FormValue("email")) == "" {
		setFlash(w, "error", "Please enter your email address")
	} else {
		setFlash(w, "success", "Thank you for subscribing to our newsletter!")
	}
	http.Redirect(w, r, safeRedirect(r.FormValue("redirect")), http.StatusSeeOther)
}

const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="%[1]d" height="%[2]d" viewBox="0 0 %[1]d %[2]d">` +
	`<rect width="100%%" height="100%%" fill="#e5e7eb"/>` +
	`<text x="50%%" y="50%%" fill="#6b7280" font-family="sans-serif" font-size="%[3]d" text-anchor="middle" dominant-baseline="middle">%[1]d&#215;%[2]d</text>` +
	`</svg>`

// handlePlaceholder serves the grey image used for articles without one.
func handlePlaceholder(w http.ResponseWriter, r *http.Request) {
	width := clampDimension(chi.URLParam(r, "w"))
	height := clampDimension(chi.URLParam(r, "h"))
	font := min(width, height) / 8
	if font < 8 {
		font = 8
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	fmt.Fprintf(w, placeholderSVG, width, height, font)
}

func clampDimension(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return min(n, 2000)
}
