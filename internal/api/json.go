package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sitedesk/internal/apperr"
	"github.com/starford/sitedesk/internal/frontmatter"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps a service error to its HTTP status. Unclassified errors are
// logged and reported as an opaque 500.
func writeError(w http.ResponseWriter, op string, err error) {
	var (
		parseErr *frontmatter.ParseError
		valErrs  validation.Errors
	)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.As(err, &parseErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(parseErr.Error()))
	case errors.Is(err, frontmatter.ErrNoFrontmatter):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("file has no frontmatter"))
	case errors.Is(err, apperr.ErrInvalid), errors.As(err, &valErrs):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotImplemented):
		writeJSON(w, http.StatusNotImplemented, errorBody("not yet implemented"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// decodeBody reads a size-limited JSON body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// parseObject decodes an optional JSON object keeping its key order. A
// missing or null value yields nil.
func parseObject(raw json.RawMessage) (*frontmatter.Map, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	m, err := frontmatter.ParseJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
	}
	return m, nil
}
