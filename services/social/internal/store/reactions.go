package store

import (
	"context"
	"time"
)

// Reaction is a user's like (Dislike=false) or dislike on a post.
// (UserID, PostID) is unique; a missing row means no opinion.
type Reaction struct {
	UserID    string    `json:"user_id"`
	PostID    string    `json:"post_id"`
	Dislike   bool      `json:"dislike"`
	CreatedAt time.Time `json:"created_at"`
}

type ReactionCounts struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

type ReactionStore interface {
	// Find returns nil without error when the user has no reaction on the post.
	Find(ctx context.Context, userID, postID string) (*Reaction, error)
	// Create returns ErrConflict when a row for the pair already exists.
	Create(ctx context.Context, r Reaction) error
	// Update and Delete return ErrNotFound when the row is gone.
	Update(ctx context.Context, userID, postID string, dislike bool) error
	Delete(ctx context.Context, userID, postID string) error
	// Counts groups the post's rows by the dislike flag.
	Counts(ctx context.Context, postID string) (ReactionCounts, error)
}
