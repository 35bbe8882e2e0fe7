// Package web serves the blog pages, the author studio and the JSON API.
package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ziadkadry99/inkpost/internal/blog"
	"github.com/ziadkadry99/inkpost/internal/live"
	"github.com/ziadkadry99/inkpost/internal/render"
)

// Options holds presentation settings.
type Options struct {
	SiteTitle     string
	FeaturedCount int
}

// Handler holds the controllers for every page.
type Handler struct {
	svc    *blog.Service
	md     *render.Renderer
	pages  *pages
	events live.Publisher
	hub    http.Handler
	log    *zap.Logger
	opts   Options
}

// New creates a Handler. hub may be nil, in which case change events are
// dropped and /ws/live is not mounted.
func New(svc *blog.Service, hub *live.Hub, log *zap.Logger, opts Options) (*Handler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.SiteTitle == "" {
		opts.SiteTitle = "Inkpost"
	}
	if opts.FeaturedCount <= 0 {
		opts.FeaturedCount = 3
	}
	p, err := parsePages()
	if err != nil {
		return nil, err
	}
	h := &Handler{
		svc:   svc,
		md:    render.New(),
		pages: p,
		log:   log,
		opts:  opts,
	}
	if hub != nil {
		h.events = hub
		h.hub = hub
	}
	return h, nil
}

// RegisterRoutes mounts every route on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Handle("/static/*", http.StripPrefix("/static/", staticHandler()))
	if h.hub != nil {
		r.Handle("/ws/live", h.hub)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/", h.handleHome)
		r.Get("/blog", h.handleBlog)
		r.Get("/posts/{id}", h.handlePost)
		r.Post("/posts/{id}/comments", h.handleAddComment)
		r.Get("/search", h.handleSearch)
		r.Post("/theme", h.handleTheme)
		r.Post("/newsletter", h.handleNewsletter)

		r.Route("/studio", func(r chi.Router) {
			r.Get("/", h.handleStudio)
			r.Post("/articles", h.handleSaveArticle)
			r.Get("/articles/{id}/edit", h.handleEditArticle)
			r.Post("/articles/{id}/publish", h.handlePublishDraft)
			r.Post("/articles/{id}/delete", h.handleDeleteArticle)
		})

		r.Route("/api", func(r chi.Router) {
			r.Get("/placeholder/{w}/{h}", handlePlaceholder)
			r.Get("/articles", h.apiListArticles)
			r.Post("/articles", h.apiCreateArticle)
			r.Get("/articles/{id}", h.apiGetArticle)
			r.Patch("/articles/{id}", h.apiUpdateArticle)
			r.Delete("/articles/{id}", h.apiDeleteArticle)
			r.Get("/articles/{id}/comments", h.apiListComments)
			r.Post("/articles/{id}/comments", h.apiAddComment)
			r.Get("/search", h.apiSearch)
			r.Get("/categories", h.apiCategories)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.renderError(w, r, http.StatusNotFound, "Page not found")
	})
}

func (h *Handler) publish(t live.EventType, articleID string) {
	if h.events == nil {
		return
	}
	h.events.Publish(live.Event{Type: t, ArticleID: articleID})
}
