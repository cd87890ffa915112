package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/example/blog-platform/internal/platform/api"
	"github.com/example/blog-platform/services/social/internal/reaction"
	"github.com/example/blog-platform/services/social/internal/store"
)

type reactRequest struct {
	Dislike bool `json:"dislike"`
}

// PostReaction handles POST /v1/posts/{post_id}/reactions
// Repeating the current reaction withdraws it.
func PostReaction(svc *reaction.Service, ps store.PostStore, log *zap.Logger) http.HandlerFunc {
	log = nopIfNil(log)
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r, "react")
		if !ok {
			return
		}
		postID, ok := pathID(w, r, "post_id")
		if !ok {
			return
		}
		var req reactRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		post, err := ps.Get(r.Context(), postID)
		if err != nil {
			writeStoreError(w, r, log, err)
			return
		}
		summary, err := svc.Apply(r.Context(), uid, postID, post.AuthorID, req.Dislike)
		if err != nil {
			writeStoreError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, summary)
	}
}

// GetReactions handles GET /v1/posts/{post_id}/reactions
func GetReactions(svc *reaction.Service, ps store.PostStore, log *zap.Logger) http.HandlerFunc {
	log = nopIfNil(log)
	return func(w http.ResponseWriter, r *http.Request) {
		postID, ok := pathID(w, r, "post_id")
		if !ok {
			return
		}
		if _, err := ps.Get(r.Context(), postID); err != nil {
			writeStoreError(w, r, log, err)
			return
		}
		uid, _ := userID(r)
		summary, err := svc.Summary(r.Context(), uid, postID)
		if err != nil {
			writeStoreError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, summary)
	}
}
