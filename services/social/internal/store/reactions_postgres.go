package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresReactionStore relies on the (user_id, post_id) primary key of
// post_reactions as the only guard against duplicate reactions.
type PostgresReactionStore struct {
	pool *pgxpool.Pool
}

func NewPostgresReactionStore(pool *pgxpool.Pool) *PostgresReactionStore {
	return &PostgresReactionStore{pool: pool}
}

func (s *PostgresReactionStore) Find(ctx context.Context, userID, postID string) (*Reaction, error) {
	const q = `SELECT user_id, post_id, dislike, created_at
	           FROM post_reactions WHERE user_id = $1 AND post_id = $2`
	var r Reaction
	err := s.pool.QueryRow(ctx, q, userID, postID).Scan(&r.UserID, &r.PostID, &r.Dislike, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, failure("find reaction", err)
	}
	return &r, nil
}

func (s *PostgresReactionStore) Create(ctx context.Context, r Reaction) error {
	const q = `INSERT INTO post_reactions (user_id, post_id, dislike)
	           VALUES ($1, $2, $3)
	           ON CONFLICT (user_id, post_id) DO NOTHING`
	tag, err := s.pool.Exec(ctx, q, r.UserID, r.PostID, r.Dislike)
	if err != nil {
		return failure("create reaction", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (s *PostgresReactionStore) Update(ctx context.Context, userID, postID string, dislike bool) error {
	const q = `UPDATE post_reactions SET dislike = $3, updated_at = now()
	           WHERE user_id = $1 AND post_id = $2`
	tag, err := s.pool.Exec(ctx, q, userID, postID, dislike)
	if err != nil {
		return failure("update reaction", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresReactionStore) Delete(ctx context.Context, userID, postID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM post_reactions WHERE user_id = $1 AND post_id = $2`, userID, postID)
	if err != nil {
		return failure("delete reaction", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresReactionStore) Counts(ctx context.Context, postID string) (ReactionCounts, error) {
	const q = `SELECT COUNT(*) FILTER (WHERE NOT dislike), COUNT(*) FILTER (WHERE dislike)
	           FROM post_reactions WHERE post_id = $1`
	var c ReactionCounts
	if err := s.pool.QueryRow(ctx, q, postID).Scan(&c.Likes, &c.Dislikes); err != nil {
		return ReactionCounts{}, failure("count reactions", err)
	}
	return c, nil
}
