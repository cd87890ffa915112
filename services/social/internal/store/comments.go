package store

import (
	"context"
	"time"
)

const (
	SortNew = "new"
	SortOld = "old"
)

// Comment is a single comment row. ParentID nil means top-level.
type Comment struct {
	ID        string     `json:"id"`
	PostID    string     `json:"post_id"`
	AuthorID  string     `json:"author_id"`
	ParentID  *string    `json:"parent_id,omitempty"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// CommentStore is the sole mutator of comment rows.
type CommentStore interface {
	// Create validates the body and, for replies, that the parent exists on the same post.
	Create(ctx context.Context, c Comment) (Comment, error)
	Get(ctx context.Context, id string) (Comment, error)
	// ListByPost returns every comment of the post, newest first.
	ListByPost(ctx context.Context, postID string) ([]Comment, error)
	// ListChildren returns the direct replies of parentID.
	ListChildren(ctx context.Context, parentID string) ([]Comment, error)
	UpdateBody(ctx context.Context, id, body string) error
	// Delete removes one row. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error
}
