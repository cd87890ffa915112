package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/blog-platform/internal/platform/api"
	"github.com/example/blog-platform/internal/platform/auth"
	"github.com/example/blog-platform/internal/platform/httpserver"
	"github.com/example/blog-platform/services/social/internal/store"
)

const maxBodyBytes = 1 << 20

// writeStoreError maps the store error taxonomy onto the JSON error envelope.
// Store failures are reported as retryable without leaking the cause.
func writeStoreError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	rid := httpserver.RequestIDFromContext(r.Context())
	switch {
	case errors.Is(err, store.ErrUnauthorized):
		if _, ok := userID(r); !ok {
			api.Unauthorized(w, api.CodeLoginRequired, "login required", rid)
			return
		}
		api.Forbidden(w, api.CodeForbidden, "not allowed", rid)
	case errors.Is(err, store.ErrNotFound):
		api.NotFound(w, api.CodeNotFound, "not found", rid)
	case errors.Is(err, store.ErrValidation):
		api.BadRequest(w, api.CodeInvalid, validationMessage(err), rid, nil)
	case errors.Is(err, store.ErrStoreFailure):
		log.Warn("store failure", zap.String("path", r.URL.Path), zap.String("request_id", rid), zap.Error(err))
		api.Unavailable(w, api.CodeRetry, "something went wrong, please try again", rid)
	default:
		log.Error("unexpected error", zap.String("path", r.URL.Path), zap.String("request_id", rid), zap.Error(err))
		api.Internal(w, rid)
	}
}

// validationMessage keeps only the detail that follows the sentinel text.
func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, store.ErrValidation.Error()+": "); i >= 0 {
		return msg[i+len(store.ErrValidation.Error())+2:]
	}
	return msg
}

func userID(r *http.Request) (string, bool) {
	return auth.UserIDFromContext(r.Context())
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, name))
	if id == "" {
		api.BadRequest(w, api.CodeMissingID, name+" is required", httpserver.RequestIDFromContext(r.Context()), nil)
		return "", false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dest); err != nil {
		api.BadRequest(w, api.CodeInvalidJSON, "invalid JSON", httpserver.RequestIDFromContext(r.Context()), nil)
		return false
	}
	return true
}

// requireUser answers 401 with "login to <action>" for anonymous requests.
func requireUser(w http.ResponseWriter, r *http.Request, action string) (string, bool) {
	uid, ok := userID(r)
	if !ok {
		api.Unauthorized(w, api.CodeLoginRequired, "login to "+action, httpserver.RequestIDFromContext(r.Context()))
	}
	return uid, ok
}

func nopIfNil(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
