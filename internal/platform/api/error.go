package api

import (
	"net/http"
)

// Error codes shared by every handler. Clients branch on these, not on messages.
const (
	CodeInvalid       = "INVALID"
	CodeInvalidJSON   = "INVALID_JSON"
	CodeMissingID     = "MISSING_ID"
	CodeEmptyBody     = "EMPTY_BODY"
	CodeInvalidSort   = "INVALID_SORT"
	CodeLoginRequired = "LOGIN_REQUIRED"
	CodeInvalidToken  = "INVALID_TOKEN"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeRetry         = "RETRY"
	CodeInternal      = "INTERNAL"
)

type ErrorResponse struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, message, requestID string, details map[string]any) {
	WriteJSON(w, status, ErrorResponse{Error: APIError{Code: code, Message: message, Details: details, RequestID: requestID}})
}

func BadRequest(w http.ResponseWriter, code, message, requestID string, details map[string]any) {
	WriteError(w, http.StatusBadRequest, code, message, requestID, details)
}

// Unauthorized means the caller is not signed in, or the token is unusable.
func Unauthorized(w http.ResponseWriter, code, message, requestID string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="social"`)
	WriteError(w, http.StatusUnauthorized, code, message, requestID, nil)
}

// Forbidden means the caller is signed in but may not touch the resource.
func Forbidden(w http.ResponseWriter, code, message, requestID string) {
	WriteError(w, http.StatusForbidden, code, message, requestID, nil)
}

func NotFound(w http.ResponseWriter, code, message, requestID string) {
	WriteError(w, http.StatusNotFound, code, message, requestID, nil)
}

// Unavailable signals a transient failure the caller may retry after a second.
// The message is shown to users, so it never carries the underlying error.
func Unavailable(w http.ResponseWriter, code, message, requestID string) {
	w.Header().Set("Retry-After", "1")
	WriteError(w, http.StatusServiceUnavailable, code, message, requestID, nil)
}

func Internal(w http.ResponseWriter, requestID string) {
	WriteError(w, http.StatusInternalServerError, CodeInternal, "Internal server error", requestID, nil)
}
