package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ziadkadry99/inkpost/internal/blog"
	"github.com/ziadkadry99/inkpost/internal/live"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// apiError maps service errors onto status codes.
func (h *Handler) apiError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *blog.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, blog.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, blog.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		h.log.Error("api request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) apiListArticles(w http.ResponseWriter, r *http.Request) {
	status := blog.Status(r.URL.Query().Get("status"))
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}
	articles, err := h.svc.FetchArticles(r.Context(), status, limit)
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	if articles == nil {
		articles = []blog.Article{}
	}
	writeJSON(w, http.StatusOK, articles)
}

func (h *Handler) apiGetArticle(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.FetchArticle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) apiCreateArticle(w http.ResponseWriter, r *http.Request) {
	var a blog.Article
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.svc.CreateArticle(r.Context(), a)
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	h.publish(live.ArticleCreated, created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) apiUpdateArticle(w http.ResponseWriter, r *http.Request) {
	var u blog.ArticleUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	updated, err := h.svc.UpdateArticle(r.Context(), chi.URLParam(r, "id"), u)
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	h.publish(live.ArticleUpdated, updated.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) apiDeleteArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteArticle(r.Context(), id); err != nil {
		h.apiError(w, r, err)
		return
	}
	h.publish(live.ArticleDeleted, id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) apiListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.svc.FetchComments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	if comments == nil {
		comments = []blog.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *Handler) apiAddComment(w http.ResponseWriter, r *http.Request) {
	var c blog.Comment
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := chi.URLParam(r, "id")
	created, err := h.svc.AddComment(r.Context(), id, c)
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	h.publish(live.CommentAdded, id)
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) apiSearch(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	if results == nil {
		results = []blog.Article{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) apiCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.Categories(r.Context())
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}
