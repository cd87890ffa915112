package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/example/blog-platform/internal/platform/api"
	"github.com/example/blog-platform/internal/platform/httpserver"
)

var testSecret = []byte("test-secret-key-32-bytes-long!!!")

func makeToken(subject, role string, exp time.Time) string {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := tok.SignedString(testSecret)
	return signed
}

func newVerifier() JWTVerifier { return JWTVerifier{Secret: testSecret} }

func bearerRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body api.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return body.Error.Code
}

// ─── JWTVerifier tests ──────────────────────────────────────────────────────

func TestJWTVerifier_ValidToken(t *testing.T) {
	tok := makeToken("user-1", "user", time.Now().Add(time.Hour))
	claims, err := newVerifier().Parse(tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != "user" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJWTVerifier_Rejects(t *testing.T) {
	valid := makeToken("user-1", "user", time.Now().Add(time.Hour))
	parts := strings.Split(valid, ".")

	cases := map[string]struct {
		verifier JWTVerifier
		token    string
	}{
		"expired":      {newVerifier(), makeToken("user-1", "user", time.Now().Add(-time.Hour))},
		"wrong secret": {JWTVerifier{Secret: []byte("wrong-secret")}, valid},
		"malformed":    {newVerifier(), "not.a.valid.token"},
		"tampered":     {newVerifier(), parts[0] + ".dGFtcGVyZWQ." + parts[2]},
		"no subject":   {newVerifier(), makeToken("", "user", time.Now().Add(time.Hour))},
	}
	for name, tc := range cases {
		if _, err := tc.verifier.Parse(tc.token); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

// ─── RequireUser middleware tests ────────────────────────────────────────────

func callRequireUser(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	RequireUser(newVerifier())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(uid))
	})).ServeHTTP(rr, req)
	return rr
}

func TestRequireUser_ValidBearer(t *testing.T) {
	rr := callRequireUser(bearerRequest(makeToken("user-42", "user", time.Now().Add(time.Hour))))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != "user-42" {
		t.Fatalf("expected 'user-42' in body, got %q", rr.Body.String())
	}
}

func TestRequireUser_MissingHeader(t *testing.T) {
	rr := callRequireUser(bearerRequest(""))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if code := errorCode(t, rr); code != "LOGIN_REQUIRED" {
		t.Fatalf("expected LOGIN_REQUIRED, got %q", code)
	}
}

func TestRequireUser_NonBearerScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	if rr := callRequireUser(req); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireUser_ExpiredToken(t *testing.T) {
	rr := callRequireUser(bearerRequest(makeToken("user-1", "user", time.Now().Add(-time.Hour))))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireUser_InjectsRoleIntoContext(t *testing.T) {
	var admin bool
	rr := httptest.NewRecorder()
	RequireUser(newVerifier())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin = IsAdmin(r.Context())
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rr, bearerRequest(makeToken("user-99", "admin", time.Now().Add(time.Hour))))

	if !admin {
		t.Fatal("expected admin role in context")
	}
}

// ─── OptionalUser middleware tests ───────────────────────────────────────────

func callOptionalUser(req *http.Request) (*httptest.ResponseRecorder, string) {
	var uid string
	rr := httptest.NewRecorder()
	OptionalUser(newVerifier())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rr, req)
	return rr, uid
}

func TestOptionalUser_Anonymous(t *testing.T) {
	rr, uid := callOptionalUser(bearerRequest(""))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if uid != "" {
		t.Fatalf("expected no user, got %q", uid)
	}
}

func TestOptionalUser_ValidToken(t *testing.T) {
	_, uid := callOptionalUser(bearerRequest(makeToken("user-7", "", time.Now().Add(time.Hour))))
	if uid != "user-7" {
		t.Fatalf("expected user-7, got %q", uid)
	}
}

func TestOptionalUser_InvalidTokenRejected(t *testing.T) {
	rr, _ := callOptionalUser(bearerRequest("garbage"))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

// ─── RequireAdmin middleware tests ───────────────────────────────────────────

func callRequireAdmin(ctx context.Context) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rr, req)
	return rr
}

func TestRequireAdmin(t *testing.T) {
	cases := map[string]int{
		"admin": http.StatusOK,
		"ADMIN": http.StatusOK,
		"user":  http.StatusForbidden,
		"":      http.StatusForbidden,
	}
	for role, want := range cases {
		ctx := context.Background()
		if role != "" {
			ctx = WithRole(ctx, role)
		}
		if rr := callRequireAdmin(ctx); rr.Code != want {
			t.Fatalf("role %q: expected %d, got %d", role, want, rr.Code)
		}
	}
}

func TestUserIDFromContext_EmptyIsAbsent(t *testing.T) {
	if _, ok := UserIDFromContext(WithUserID(context.Background(), "")); ok {
		t.Fatal("empty user id must not count as authenticated")
	}
}

func TestRequireUser_ErrorCarriesRequestID(t *testing.T) {
	h := httpserver.RequestIDMiddleware("X-Request-Id")(RequireUser(JWTVerifier{Secret: testSecret})(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })))

	req := httptest.NewRequest(http.MethodPost, "/v1/posts/p1/reactions", nil)
	req.Header.Set("X-Request-Id", "rid-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	var body api.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != api.CodeLoginRequired || body.Error.RequestID != "rid-42" {
		t.Fatalf("unexpected envelope %+v", body.Error)
	}
}
