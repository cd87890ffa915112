package auth

import (
	"net/http"

	"github.com/example/blog-platform/internal/platform/api"
	"github.com/example/blog-platform/internal/platform/httpserver"
)

// RequireAdmin allows request only if RequireUser already injected role=admin into context.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			api.Forbidden(w, api.CodeForbidden, "administrator role required", httpserver.RequestIDFromContext(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}
