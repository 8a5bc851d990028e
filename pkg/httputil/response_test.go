package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	err := WriteJSON(rec, http.StatusTeapot, map[string]string{"key": "value"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "value", body["key"])
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
		msg    string
	}{
		{"bad request", func(w http.ResponseWriter) { WriteBadRequest(w, "bad input") }, http.StatusBadRequest, "bad input"},
		{"unauthorized", func(w http.ResponseWriter) { WriteUnauthorized(w, "login first") }, http.StatusUnauthorized, "login first"},
		{"forbidden", func(w http.ResponseWriter) { WriteForbidden(w, "no") }, http.StatusForbidden, "no"},
		{"not found", func(w http.ResponseWriter) { WriteNotFoundError(w, "gone") }, http.StatusNotFound, "gone"},
		{"conflict", func(w http.ResponseWriter) { WriteConflict(w, "dup") }, http.StatusConflict, "dup"},
		{"error value", func(w http.ResponseWriter) { WriteError(w, http.StatusBadRequest, errors.New("boom")) }, http.StatusBadRequest, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.msg, body["message"])
		})
	}
}

// Internal errors are opaque; the cause goes to the log, never the client
func TestWriteInternalErrorIsOpaque(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteInternalError(rec)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body["message"])
}
