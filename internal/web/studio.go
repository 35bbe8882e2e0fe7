package web

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ziadkadry99/inkpost/internal/blog"
	"github.com/ziadkadry99/inkpost/internal/live"
)

const (
	tabMyArticles = "my-articles"
	tabNewArticle = "new-article"
)

// studioData feeds the studio page.
type studioData struct {
	Tab       string
	Articles  []blog.Article
	Form      blog.ArticleForm
	Editing   bool
	Published *blog.Article
	Error     string
}

func studioURL(tab string, published string) string {
	v := url.Values{"tab": {tab}}
	if published != "" {
		v.Set("published", published)
	}
	return "/studio?" + v.Encode()
}

func (h *Handler) handleStudio(w http.ResponseWriter, r *http.Request) {
	d := studioData{Tab: r.URL.Query().Get("tab")}
	if d.Tab != tabNewArticle {
		d.Tab = tabMyArticles
	}
	h.loadStudio(r, &d)
	h.page(w, r, http.StatusOK, "studio", "Publish", "studio", d)
}

// loadStudio fills the article list and the success dialog.
func (h *Handler) loadStudio(r *http.Request, d *studioData) {
	ctx := r.Context()
	articles, err := h.svc.Dashboard(ctx)
	if err != nil {
		h.log.Error("loading studio articles", zap.Error(err))
		d.Error = "Failed to load articles"
	}
	d.Articles = articles

	if id := r.URL.Query().Get("published"); id != "" {
		a, err := h.svc.FetchArticle(ctx, id)
		if err == nil && a.Published() {
			d.Published = a
		}
	}
}

func (h *Handler) handleEditArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := h.svc.FetchArticle(r.Context(), id)
	if errors.Is(err, blog.ErrNotFound) {
		setFlash(w, "error", "Article not found")
		http.Redirect(w, r, studioURL(tabMyArticles, ""), http.StatusSeeOther)
		return
	}
	if err != nil {
		h.log.Error("loading article for editing", zap.String("id", id), zap.Error(err))
		setFlash(w, "error", "Failed to load article for editing")
		http.Redirect(w, r, studioURL(tabMyArticles, ""), http.StatusSeeOther)
		return
	}

	image := a.ImageURL
	if image == blog.PlaceholderImage {
		image = ""
	}
	d := studioData{
		Tab:     tabNewArticle,
		Editing: true,
		Form: blog.ArticleForm{
			ID:       a.ID,
			Title:    a.Title,
			Category: a.Category,
			Excerpt:  a.Excerpt,
			Content:  h.md.StripHTML(a.Content),
			ImageURL: image,
		},
	}
	h.loadStudio(r, &d)
	h.page(w, r, http.StatusOK, "studio", "Edit: "+a.Title, "studio", d)
}

func (h *Handler) handleSaveArticle(w http.ResponseWriter, r *http.Request) {
	form := blog.ArticleForm{
		ID:       r.FormValue("id"),
		Title:    r.FormValue("title"),
		Category: r.FormValue("category"),
		Excerpt:  r.FormValue("excerpt"),
		Content:  r.FormValue("content"),
		ImageURL: r.FormValue("image_url"),
	}
	action := blog.SaveAction(r.FormValue("action"))
	if action == "" {
		action = blog.ActionPublish
	}

	saved, updated, err := h.svc.SaveArticle(r.Context(), form, action)
	if err != nil {
		var verr *blog.ValidationError
		msg := "Error: failed to save article"
		if errors.As(err, &verr) {
			msg = verr.Message
		} else {
			h.log.Error("saving article", zap.String("action", string(action)), zap.Error(err))
		}
		d := studioData{Tab: tabNewArticle, Editing: form.ID != "", Form: form}
		h.loadStudio(r, &d)
		h.pageWithFlash(w, r, http.StatusUnprocessableEntity, "studio", "Publish", "studio", d,
			&Flash{Type: "error", Message: msg})
		return
	}

	event := live.ArticleCreated
	if updated {
		event = live.ArticleUpdated
	}
	h.publish(event, saved.ID)

	switch {
	case updated && action == blog.ActionPublish:
		setFlash(w, "success", "Article updated successfully!")
		http.Redirect(w, r, studioURL(tabMyArticles, saved.ID), http.StatusSeeOther)
	case action == blog.ActionPublish:
		setFlash(w, "success", "Article published successfully!")
		http.Redirect(w, r, studioURL(tabMyArticles, saved.ID), http.StatusSeeOther)
	default:
		setFlash(w, "success", "Draft saved successfully!")
		http.Redirect(w, r, studioURL(tabMyArticles, ""), http.StatusSeeOther)
	}
}

func (h *Handler) handlePublishDraft(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := h.svc.PublishDraft(r.Context(), id)
	if err != nil {
		h.log.Error("publishing draft", zap.String("id", id), zap.Error(err))
		setFlash(w, "error", "Failed to publish draft")
		http.Redirect(w, r, studioURL(tabMyArticles, ""), http.StatusSeeOther)
		return
	}
	h.publish(live.ArticleUpdated, a.ID)
	setFlash(w, "success", "Article published successfully!")
	http.Redirect(w, r, studioURL(tabMyArticles, a.ID), http.StatusSeeOther)
}

func (h *Handler) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteArticle(r.Context(), id); err != nil {
		h.log.Error("deleting article", zap.String("id", id), zap.Error(err))
		setFlash(w, "error", "Failed to delete article")
	} else {
		h.publish(live.ArticleDeleted, id)
		setFlash(w, "success", "Article deleted successfully")
	}
	http.Redirect(w, r, studioURL(tabMyArticles, ""), http.StatusSeeOther)
}
