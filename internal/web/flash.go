package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const (
	flashCookie = "inkpost_flash"
	themeCookie = "theme"
)

// Flash is a one-shot notification shown on the next page view.
type Flash struct {
	Type    string `json:"type"` // "success" or "error"
	Message string `json:"message"`
}

func setFlash(w http.ResponseWriter, kind, message string) {
	data, err := json.Marshal(Flash{Type: kind, Message: message})
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the pending flash, if any.
func popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	data, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var f Flash
	if err := json.Unmarshal(data, &f); err != nil || f.Message == "" {
		return nil
	}
	if f.Type != "error" {
		f.Type = "success"
	}
	return &f
}

func themeOf(r *http.Request) string {
	if c, err := r.Cookie(themeCookie); err == nil && c.Value == "dark" {
		return "dark"
	}
	return "light"
}

// handleTheme flips the theme cookie and sends the reader back.
func (h *Handler) handleTheme(w http.ResponseWriter, r *http.Request) {
	next := "dark"
	if themeOf(r) == "dark" {
		next = "light"
	}
	if v := r.FormValue("theme"); v == "light" || v == "dark" {
		next = v
	}
	http.SetCookie(w, &http.Cookie{
		Name:     themeCookie,
		Value:    next,
		Path:     "/",
		Expires:  time.Now().AddDate(1, 0, 0),
		MaxAge:   365 * 24 * 60 * 60,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, safeRedirect(r.FormValue("redirect")), http.StatusSeeOther)
}

// safeRedirect only allows local paths.
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}
