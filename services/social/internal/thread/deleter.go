package thread

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/blog-platform/services/social/internal/store"
)

// Actor identifies who initiates a delete.
type Actor struct {
	UserID string
	Admin  bool
}

// Deleter removes a comment and all of its descendants, children before
// parents, so the store never sees a dangling parent reference.
//
// Concurrent deletes of overlapping subtrees are not coordinated.
type Deleter struct {
	Comments store.CommentStore
	Posts    store.PostStore
	Log      *zap.Logger
}

func NewDeleter(comments store.CommentStore, posts store.PostStore, log *zap.Logger) *Deleter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Deleter{Comments: comments, Posts: posts, Log: log}
}

// Delete authorizes actor once against the root comment and then cascades.
// It returns how many comments were removed. On a store failure the subtree
// may be partially removed; calling Delete again finishes the job.
func (d *Deleter) Delete(ctx context.Context, actor Actor, commentID string) (int, error) {
	if actor.UserID == "" {
		return 0, store.ErrUnauthorized
	}
	root, err := d.Comments.Get(ctx, commentID)
	if err != nil {
		return 0, err
	}
	if err := d.authorize(ctx, actor, root); err != nil {
		return 0, err
	}

	removed, err := d.cascade(ctx, commentID, map[string]bool{})
	if err != nil {
		d.Log.Warn("comment cascade aborted",
			zap.String("comment_id", commentID),
			zap.Int("removed", removed),
			zap.Error(err))
		return removed, err
	}
	d.Log.Info("comment subtree deleted",
		zap.String("comment_id", commentID),
		zap.String("post_id", root.PostID),
		zap.String("actor_id", actor.UserID),
		zap.Int("removed", removed))
	return removed, nil
}

// authorize admits administrators, the comment author, the post owner and the
// author of the top-level comment of the thread.
func (d *Deleter) authorize(ctx context.Context, actor Actor, c store.Comment) error {
	if actor.Admin || c.AuthorID == actor.UserID {
		return nil
	}

	if d.Posts != nil {
		post, err := d.Posts.Get(ctx, c.PostID)
		switch {
		case err == nil && post.AuthorID == actor.UserID:
			return nil
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return err
		}
	}

	top, err := d.threadRoot(ctx, c)
	if err != nil {
		return err
	}
	if top.AuthorID == actor.UserID {
		return nil
	}
	return store.ErrUnauthorized
}

// threadRoot follows parent links up to the top-level comment. A missing
// ancestor ends the walk at the last comment found.
func (d *Deleter) threadRoot(ctx context.Context, c store.Comment) (store.Comment, error) {
	seen := map[string]bool{c.ID: true}
	for c.ParentID != nil {
		parent, err := d.Comments.Get(ctx, *c.ParentID)
		if errors.Is(err, store.ErrNotFound) {
			return c, nil
		}
		if err != nil {
			return store.Comment{}, err
		}
		if seen[parent.ID] {
			return c, nil
		}
		seen[parent.ID] = true
		c = parent
	}
	return c, nil
}

func (d *Deleter) cascade(ctx context.Context, id string, visited map[string]bool) (int, error) {
	if visited[id] {
		return 0, nil
	}
	visited[id] = true

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("delete cascade at %s: %w: %w", id, store.ErrStoreFailure, err)
	}
	children, err := d.Comments.ListChildren(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("list replies of %s: %w", id, err)
	}

	removed := 0
	for _, child := range children {
		n, err := d.cascade(ctx, child.ID, visited)
		removed += n
		if err != nil {
			return removed, err
		}
	}
	if err := d.Comments.Delete(ctx, id); err != nil {
		return removed, fmt.Errorf("delete comment %s: %w", id, err)
	}
	return removed + 1, nil
}
