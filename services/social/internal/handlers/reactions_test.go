package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/blog-platform/services/social/internal/reaction"
	"github.com/example/blog-platform/services/social/internal/store"
)

type downReactions struct {
	store.ReactionStore
}

func (downReactions) Find(context.Context, string, string) (*store.Reaction, error) {
	return nil, fmt.Errorf("find reaction: %w: connection refused", store.ErrStoreFailure)
}

func react(t *testing.T, h http.HandlerFunc, user, body string) (int, reaction.Summary) {
	t.Helper()
	req := setupReq(http.MethodPost, "/v1/posts/post-1/reactions", body, map[string]string{"post_id": "post-1"}, user)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var s reaction.Summary
	if rr.Code == http.StatusOK {
		if err := json.NewDecoder(rr.Body).Decode(&s); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return rr.Code, s
}

func TestPostReaction_Toggles(t *testing.T) {
	ps := store.NewInMemoryPostStore(store.Post{ID: "post-1", AuthorID: "owner"})
	em := &recordingEmitter{}
	svc := reaction.NewService(store.NewInMemoryReactionStore(), em, nil)
	h := PostReaction(svc, ps, nil)

	code, s := react(t, h, "alice", `{"dislike":false}`)
	if code != http.StatusOK || s != (reaction.Summary{Likes: 1, LikedByMe: true}) {
		t.Fatalf("like: %d %+v", code, s)
	}
	_, s = react(t, h, "alice", `{"dislike":true}`)
	if s != (reaction.Summary{Dislikes: 1, DislikedByMe: true}) {
		t.Fatalf("switch to dislike: %+v", s)
	}
	_, s = react(t, h, "alice", `{"dislike":true}`)
	if s != (reaction.Summary{}) {
		t.Fatalf("repeat dislike should withdraw: %+v", s)
	}

	evs := em.all()
	if len(evs) != 1 || evs[0].Type != store.NotificationLike || evs[0].NotifiedID != "owner" {
		t.Fatalf("expected exactly one like notification, got %+v", evs)
	}
}

func TestPostReaction_Errors(t *testing.T) {
	ps := store.NewInMemoryPostStore(store.Post{ID: "post-1", AuthorID: "owner"})
	h := PostReaction(reaction.NewService(store.NewInMemoryReactionStore(), nil, nil), ps, nil)

	anon := httptest.NewRecorder()
	h.ServeHTTP(anon, setupReq(http.MethodPost, "/v1/posts/post-1/reactions", `{"dislike":false}`, map[string]string{"post_id": "post-1"}, ""))
	if anon.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", anon.Code)
	}
	if code, msg := errorEnvelope(t, anon); code != "LOGIN_REQUIRED" || msg != "login to react" {
		t.Fatalf("unexpected anonymous error %s %q", code, msg)
	}
	if code, _ := react(t, h, "alice", `nope`); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}

	req := setupReq(http.MethodPost, "/v1/posts/ghost/reactions", `{}`, map[string]string{"post_id": "ghost"}, "alice")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestPostReaction_StoreFailureIsRetryable(t *testing.T) {
	ps := store.NewInMemoryPostStore(store.Post{ID: "post-1", AuthorID: "owner"})
	h := PostReaction(reaction.NewService(downReactions{}, nil, nil), ps, nil)

	req := setupReq(http.MethodPost, "/v1/posts/post-1/reactions", `{}`, map[string]string{"post_id": "post-1"}, "alice")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if code, msg := errorEnvelope(t, rr); code != "RETRY" || msg != "something went wrong, please try again" {
		t.Fatalf("unexpected store failure error %s %q", code, msg)
	}
}

func TestGetReactions_AnonymousAndSignedIn(t *testing.T) {
	ps := store.NewInMemoryPostStore(store.Post{ID: "post-1", AuthorID: "owner"})
	svc := reaction.NewService(store.NewInMemoryReactionStore(), nil, nil)
	for _, u := range []string{"a", "b"} {
		if _, err := svc.Apply(context.Background(), u, "post-1", "owner", false); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.Apply(context.Background(), "c", "post-1", "owner", true); err != nil {
		t.Fatal(err)
	}
	h := GetReactions(svc, ps, nil)

	get := func(user string) reaction.Summary {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, setupReq(http.MethodGet, "/v1/posts/post-1/reactions", "", map[string]string{"post_id": "post-1"}, user))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var s reaction.Summary
		_ = json.NewDecoder(rr.Body).Decode(&s)
		return s
	}

	if s := get(""); s != (reaction.Summary{Likes: 2, Dislikes: 1}) {
		t.Fatalf("anonymous: %+v", s)
	}
	if s := get("c"); s != (reaction.Summary{Likes: 2, Dislikes: 1, DislikedByMe: true}) {
		t.Fatalf("signed in: %+v", s)
	}
}
