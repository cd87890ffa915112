package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/blog-platform/internal/platform/auth"
	"github.com/example/blog-platform/services/social/internal/notify"
	"github.com/example/blog-platform/services/social/internal/store"
)

// setupReq builds a request with chi URL params and optional user_id in context.
func setupReq(method, url string, body string, params map[string]string, userID string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if userID != "" {
		ctx = auth.WithUserID(ctx, userID)
	}
	return req.WithContext(ctx)
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []notify.Event
}

func (e *recordingEmitter) Emit(_ context.Context, ev notify.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *recordingEmitter) all() []notify.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]notify.Event(nil), e.events...)
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func ptr(s string) *string { return &s }

// seedThread stores post-1 (by "owner") with the chain c1 <- c2 <- c3 and a
// second root c4.
func seedThread() (*store.InMemoryCommentStore, *store.InMemoryPostStore) {
	cs := store.NewInMemoryCommentStore()
	ps := store.NewInMemoryPostStore(store.Post{ID: "post-1", AuthorID: "owner"})
	ctx := context.Background()
	fixtures := []store.Comment{
		{ID: "c1", PostID: "post-1", AuthorID: "alice", Body: "first", CreatedAt: base},
		{ID: "c2", PostID: "post-1", AuthorID: "bob", ParentID: ptr("c1"), Body: "reply", CreatedAt: base.Add(time.Minute)},
		{ID: "c3", PostID: "post-1", AuthorID: "owner", ParentID: ptr("c2"), Body: "deeper", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "c4", PostID: "post-1", AuthorID: "carol", Body: "second", CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, c := range fixtures {
		if _, err := cs.Create(ctx, c); err != nil {
			panic(err)
		}
	}
	return cs, ps
}

func errorEnvelope(t *testing.T, rr *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env.Error.Code, env.Error.Message
}
