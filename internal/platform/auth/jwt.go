package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/example/blog-platform/internal/platform/api"
	"github.com/example/blog-platform/internal/platform/httpserver"
)

var errNoBearer = errors.New("missing bearer token")

type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type JWTVerifier struct {
	Secret []byte
}

func (v JWTVerifier) Parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return v.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// authenticate returns a context carrying the caller identity.
// errNoBearer means the request carried no credentials at all.
func (v JWTVerifier) authenticate(r *http.Request) (context.Context, error) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" {
		return nil, errNoBearer
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, errors.New("unsupported authorization scheme")
	}
	claims, err := v.Parse(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, err
	}
	ctx := WithUserID(r.Context(), claims.Subject)
	if strings.TrimSpace(claims.Role) != "" {
		ctx = WithRole(ctx, claims.Role)
	}
	return ctx, nil
}

// RequireUser rejects requests without a valid Bearer token and injects
// user_id and role into context.
func RequireUser(verifier JWTVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := verifier.authenticate(r)
			if err != nil {
				api.Unauthorized(w, api.CodeLoginRequired, "login required", httpserver.RequestIDFromContext(r.Context()))
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalUser injects the identity when a valid token is present and lets
// anonymous requests through. A present but invalid token is still rejected.
func OptionalUser(verifier JWTVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := verifier.authenticate(r)
			switch {
			case errors.Is(err, errNoBearer):
				next.ServeHTTP(w, r)
			case err != nil:
				api.Unauthorized(w, api.CodeInvalidToken, "invalid or expired token", httpserver.RequestIDFromContext(r.Context()))
			default:
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}
