package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/example/blog-platform/internal/platform/api"
	"github.com/example/blog-platform/internal/platform/auth"
	"github.com/example/blog-platform/internal/platform/httpserver"
	"github.com/example/blog-platform/services/social/internal/notify"
	"github.com/example/blog-platform/services/social/internal/store"
	"github.com/example/blog-platform/services/social/internal/thread"
)

// Comment bodies are plain text; any markup is stripped before storage.
var sanitizer = bluemonday.StrictPolicy()

type createCommentRequest struct {
	Body     string  `json:"body"`
	ParentID *string `json:"parent_id,omitempty"`
}

type updateCommentRequest struct {
	Body string `json:"body"`
}

type threadResponse struct {
	Comments []*thread.Node `json:"comments"`
	Total    int            `json:"total"`
}

type deleteResponse struct {
	Deleted int `json:"deleted"`
}

func cleanBody(raw string) string {
	return strings.TrimSpace(sanitizer.Sanitize(raw))
}

// GetThread handles GET /v1/posts/{post_id}/comments
func GetThread(cs store.CommentStore, ps store.PostStore, log *zap.Logger) http.HandlerFunc {
	log = nopIfNil(log)
	return func(w http.ResponseWriter, r *http.Request) {
		postID, ok := pathID(w, r, "post_id")
		if !ok {
			return
		}

		sortParam := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("sort")))
		switch sortParam {
		case "":
			sortParam = store.SortNew
		case store.SortNew, store.SortOld:
		default:
			api.BadRequest(w, api.CodeInvalidSort, "sort must be new or old", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}

		post, err := ps.Get(r.Context(), postID)
		if err != nil {
			writeStoreError(w, r, log, err)
			return
		}
		comments, err := cs.ListByPost(r.Context(), postID)
		if err != nil {
			writeStoreError(w, r, log, err)
			return
		}

		forest := thread.BuildForest(comments, thread.Options{Sort: sortParam, PostAuthorID: post.AuthorID})
		api.WriteJSON(w, http.StatusOK, threadResponse{Comments: forest, Total: thread.Count(forest)})
	}
}

// CreateComment handles POST /v1/posts/{post_id}/comments
// A reply notifies the parent comment's author; a top-level comment notifies the post author.
func CreateComment(cs store.CommentStore, ps store.PostStore, emitter notify.Emitter, log *zap.Logger) http.HandlerFunc {
	log = nopIfNil(log)
	if emitter == nil {
		emitter = notify.Nop{}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r, "comment")
		if !ok {
			return
		}
		postID, ok := pathID(w, r, "post_id")
		if !ok {
			return
		}

		var req createCommentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		body := cleanBody(req.Body)
		if body == "" {
			api.BadRequest(w, api.CodeEmptyBody, "body must not be empty", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}
		if req.ParentID != nil && strings.TrimSpace(*req.ParentID) == "" {
			req.ParentID = nil
		}

		post, err := ps.Get(r.Context(), postID)
		if err != nil {
			writeStoreError(w, r, log, err)
			return
		}

		created, err := cs.Create(r.Context(), store.Comment{
			PostID:   postID,
			AuthorID: uid,
			ParentID: req.ParentID,
			Body:     body,
		})
		if err != nil {
			writeStoreError(w, r, log, err)
			return
		}

		recipient := post.AuthorID
		if created.ParentID != nil {
			parent, err := cs.Get(r.Context(), *created.ParentID)
			if err != nil {
				// the comment is stored; only the notification is lost
				log.Warn("reply parent lookup failed", zap.String("comment_id", created.ID), zap.Error(err))
				recipient = ""
			} else {
				recipient = parent.AuthorID
			}
		}
		if recipient != "" {
			emitter.Emit(r.Context(), notify.Event{
				Type:       store.NotificationReply,
				NotifierID: uid,
				NotifiedID: recipient,
				PostID:     postID,
				CommentID:  created.ID,
			})
		}

		api.WriteJSON(w, http.StatusCreated, created)
	}
}

// UpdateComment handles PUT /v1/comments/{comment_id}
func UpdateComment(cs store.CommentStore, log *zap.Logger) http.HandlerFunc {
	log = nopIfNil(log)
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r, "edit comments")
		if !ok {
			return
		}
		commentID, ok := pathID(w, r, "comment_id")
		if !ok {
			return
		}

		var req updateCommentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		body := cleanBody(req.Body)
		if body == "" {
			api.BadRequest(w, api.CodeEmptyBody, "body must not be empty", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}

		existing, err := cs.Get(r.Context(), commentID)
		if err != nil {
			writeStoreError(w, r, log, err)
			return
		}
		if existing.AuthorID != uid {
			api.Forbidden(w, api.CodeForbidden, "cannot edit another user's comment", httpserver.RequestIDFromContext(r.Context()))
			return
		}
		if err := cs.UpdateBody(r.Context(), commentID, body); err != nil {
			writeStoreError(w, r, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteComment handles DELETE /v1/comments/{comment_id}
// The comment and every reply beneath it are removed.
func DeleteComment(d *thread.Deleter, log *zap.Logger) http.HandlerFunc {
	log = nopIfNil(log)
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := requireUser(w, r, "delete comments")
		if !ok {
			return
		}
		commentID, ok := pathID(w, r, "comment_id")
		if !ok {
			return
		}

		actor := thread.Actor{UserID: uid, Admin: auth.IsAdmin(r.Context())}
		removed, err := d.Delete(r.Context(), actor, commentID)
		if err != nil {
			if errors.Is(err, store.ErrUnauthorized) {
				api.Forbidden(w, api.CodeForbidden, "cannot delete another user's comment", httpserver.RequestIDFromContext(r.Context()))
				return
			}
			writeStoreError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, deleteResponse{Deleted: removed})
	}
}
