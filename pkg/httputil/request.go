package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ParseJSONOrError decodes the request body into dst. On failure it writes a
// 400 response and returns false; the caller should return immediately.
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteBadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// RequireNonEmpty validates that a string field is non-blank. On failure it
// writes a 400 response and returns false.
func RequireNonEmpty(w http.ResponseWriter, value, field string) bool {
	if strings.TrimSpace(value) == "" {
		WriteBadRequest(w, field+" is required")
		return false
	}
	return true
}
