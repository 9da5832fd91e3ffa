package httpx

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response with the given status code. It sets
// Content-Type and no-store cache headers; every payload this service emits
// is either PII-adjacent or a credential, so nothing is cacheable.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// Error is the stable machine-readable error body returned by every
// endpoint: an error code plus a human-oriented description.
type Error struct {
	StatusCode int `json:"-"`

	Code        string `json:"error"`
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Code + ": " + e.Description
}

// Write emits the error as a JSON response.
func (e *Error) Write(w http.ResponseWriter) {
	WriteJSON(w, e.StatusCode, e)
}

// NewError builds an Error with the given status, code, and description.
func NewError(statusCode int, code, description string) *Error {
	return &Error{StatusCode: statusCode, Code: code, Description: description}
}
