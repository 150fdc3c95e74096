// Package api exposes interviews over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spigell/mock-interviewer/internal/conversation"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// statusOf maps conversation error kinds to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, conversation.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, conversation.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, conversation.ErrConflict), errors.Is(err, conversation.ErrEnded):
		return http.StatusConflict
	case errors.Is(err, conversation.ErrTranscription), errors.Is(err, conversation.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, conversation.ErrPersistence):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return decodeJSONWithin(w, r, maxJSONBody, v)
}

func decodeJSONWithin(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(v)
}
