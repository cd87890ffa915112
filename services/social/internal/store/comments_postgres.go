package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCommentStore persists comments in Postgres. The parent_id foreign
// key has no ON DELETE CASCADE; subtrees are removed bottom-up by the caller.
type PostgresCommentStore struct {
	pool *pgxpool.Pool
}

// NewPostgresCommentStore creates a store backed by Postgres.
func NewPostgresCommentStore(pool *pgxpool.Pool) *PostgresCommentStore {
	return &PostgresCommentStore{pool: pool}
}

const commentColumns = `id, post_id, author_id, parent_id, body, created_at, updated_at`

func (s *PostgresCommentStore) Create(ctx context.Context, c Comment) (Comment, error) {
	if strings.TrimSpace(c.Body) == "" {
		return Comment{}, invalid("body must not be empty")
	}
	if c.PostID == "" || c.AuthorID == "" {
		return Comment{}, invalid("post_id and author_id are required")
	}

	// The parent check and the insert run as one statement so a reply can
	// never land on a comment of another post.
	const q = `INSERT INTO comments (post_id, author_id, parent_id, body)
	           SELECT $1::text, $2::text, $3::text, $4::text
	           WHERE $3::text IS NULL
	              OR EXISTS (SELECT 1 FROM comments WHERE id = $3 AND post_id = $1)
	           RETURNING ` + commentColumns
	out, err := scanComment(s.pool.QueryRow(ctx, q, c.PostID, c.AuthorID, c.ParentID, c.Body))
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, invalid("parent %q not found on post %q", deref(c.ParentID), c.PostID)
	}
	if err != nil {
		return Comment{}, failure("create comment", err)
	}
	return out, nil
}

func (s *PostgresCommentStore) Get(ctx context.Context, id string) (Comment, error) {
	q := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`
	c, err := scanComment(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, ErrNotFound
	}
	if err != nil {
		return Comment{}, failure("get comment", err)
	}
	return c, nil
}

func (s *PostgresCommentStore) ListByPost(ctx context.Context, postID string) ([]Comment, error) {
	q := `SELECT ` + commentColumns + `
	      FROM comments
	      WHERE post_id = $1
	      ORDER BY created_at DESC, id DESC`
	out, err := s.scanComments(ctx, q, postID)
	if err != nil {
		return nil, failure("list comments", err)
	}
	return out, nil
}

func (s *PostgresCommentStore) ListChildren(ctx context.Context, parentID string) ([]Comment, error) {
	q := `SELECT ` + commentColumns + `
	      FROM comments
	      WHERE parent_id = $1
	      ORDER BY created_at DESC, id DESC`
	out, err := s.scanComments(ctx, q, parentID)
	if err != nil {
		return nil, failure("list replies", err)
	}
	return out, nil
}

func (s *PostgresCommentStore) UpdateBody(ctx context.Context, id, body string) error {
	if strings.TrimSpace(body) == "" {
		return invalid("body must not be empty")
	}
	const q = `UPDATE comments SET body = $1, updated_at = now() WHERE id = $2`
	tag, err := s.pool.Exec(ctx, q, body, id)
	if err != nil {
		return failure("update comment", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresCommentStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id); err != nil {
		return failure("delete comment", err)
	}
	return nil
}

func (s *PostgresCommentStore) scanComments(ctx context.Context, q string, args ...any) ([]Comment, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanComment(row pgx.Row) (Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.ParentID, &c.Body, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
