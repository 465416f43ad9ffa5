package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mandate-ai/mandate/internal/models"
)

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteError translates a pipeline error into the HTTP error envelope.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var pe *models.PipelineError
	if errors.As(err, &pe) {
		status = pe.Kind.HTTPStatus()
	}
	WriteJSON(w, status, map[string]string{"detail": err.Error()})
}

// WriteDetail writes an error envelope with an explicit status.
func WriteDetail(w http.ResponseWriter, status int, detail string) {
	WriteJSON(w, status, map[string]string{"detail": detail})
}

// DecodeJSON parses the request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return models.WrapError(models.KindInputInvalid, "invalid request body", err)
	}
	return nil
}

// PathID extracts the resource ID segment following the prefix:
// /web-scraping/sources/{id}[/suffix] -> {id}.
func PathID(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	if idx := strings.Index(rest, "/"); idx >= 0 {
		rest = rest[:idx]
	}
	return rest
}

// QueryInt reads an integer query parameter with a default.
func QueryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// Pagination resolves page/limit query parameters into list options.
func Pagination(r *http.Request) (offset, limit int) {
	page := QueryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit = QueryInt(r, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return (page - 1) * limit, limit
}

// UserContextFrom builds the caller identity from request headers.
// Returns nil when no role header is present.
func UserContextFrom(r *http.Request) *models.UserContext {
	role := strings.TrimSpace(r.Header.Get("X-User-Role"))
	if role == "" {
		return nil
	}
	return &models.UserContext{
		UserID:        strings.TrimSpace(r.Header.Get("X-User-Id")),
		Role:          role,
		InstitutionID: strings.TrimSpace(r.Header.Get("X-Institution-Id")),
	}
}

// RequireID validates a non-empty path ID.
func RequireID(w http.ResponseWriter, id, resource string) bool {
	if id == "" {
		WriteDetail(w, http.StatusBadRequest, fmt.Sprintf("%s id is required", resource))
		return false
	}
	return true
}
