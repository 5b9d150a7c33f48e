// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/moreai/moreai/internal/handler/dto"
)

// Hello is the service info endpoint.
// GET /
func Hello(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"service": "moreai",
		"message": "Hello from MoreAI!",
	}
	writeJSON(w, http.StatusOK, response)
}

// NotFound handles 404 responses.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		_ = err
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// wantsJSON reports whether the client asked for a JSON response rather
// than a rendered page.
func wantsJSON(r *http.Request) bool {
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	return strings.HasPrefix(r.Header.Get("Accept"), "application/json")
}
