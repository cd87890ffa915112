package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteError_Envelope(t *testing.T) {
	rr := httptest.NewRecorder()
	Forbidden(rr, "FORBIDDEN", "cannot delete another user's comment", "rid-1")

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "FORBIDDEN" || body.Error.RequestID != "rid-1" {
		t.Fatalf("unexpected envelope: %+v", body.Error)
	}
}

func TestUnavailable_SetsRetryAfter(t *testing.T) {
	rr := httptest.NewRecorder()
	Unavailable(rr, "RETRY", "please try again", "")

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestWriteJSON_NilBody(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, http.StatusAccepted, nil)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rr.Body.String())
	}
}

func TestUnauthorized_ChallengesBearer(t *testing.T) {
	rr := httptest.NewRecorder()
	Unauthorized(rr, CodeLoginRequired, "login to react", "")

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if got := rr.Header().Get("WWW-Authenticate"); got == "" {
		t.Fatal("expected WWW-Authenticate challenge")
	}
	var body ErrorResponse
	_ = json.NewDecoder(rr.Body).Decode(&body)
	if body.Error.Code != CodeLoginRequired || body.Error.Message != "login to react" {
		t.Fatalf("unexpected envelope: %+v", body.Error)
	}
}

func TestInternal_HidesCause(t *testing.T) {
	rr := httptest.NewRecorder()
	Internal(rr, "rid-9")

	var body ErrorResponse
	_ = json.NewDecoder(rr.Body).Decode(&body)
	if rr.Code != http.StatusInternalServerError || body.Error.Code != CodeInternal {
		t.Fatalf("unexpected response %d %+v", rr.Code, body.Error)
	}
	if body.Error.Details != nil {
		t.Fatalf("internal errors must not carry details, got %v", body.Error.Details)
	}
}
