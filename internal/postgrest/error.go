package postgrest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ziadkadry99/inkpost/internal/blog"
	"github.com/ziadkadry99/inkpost/internal/httpx"
)

// codeNoRows is returned with a 406 when a single-object read matched nothing.
const codeNoRows = "PGRST116"

// Error is an error response from PostgREST.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("postgrest: %s (code %s, status %d)", msg, e.Code, e.Status)
	}
	return fmt.Sprintf("postgrest: %s (status %d)", msg, e.Status)
}

// NotFound reports whether a single-object read found no row.
func (e *Error) NotFound() bool {
	return e.Code == codeNoRows
}

// Is lets errors.Is(err, blog.ErrNotFound) match a PGRST116 response.
func (e *Error) Is(target error) bool {
	return target == blog.ErrNotFound && e.NotFound()
}

// fromHTTP converts an httpx.HTTPError into an *Error. Other errors are
// returned unchanged.
func fromHTTP(err error) error {
	var httpErr *httpx.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}
	pgErr := &Error{Status: httpErr.StatusCode}
	if len(httpErr.Body) > 0 {
		if json.Unmarshal(httpErr.Body, pgErr) != nil {
			pgErr.Message = string(httpErr.Body)
		}
	}
	return pgErr
}
