package store

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Post carries the fields the social core needs from the posts table,
// which is owned elsewhere.
type Post struct {
	ID       string `json:"id"`
	AuthorID string `json:"author_id"`
}

type PostStore interface {
	Get(ctx context.Context, id string) (Post, error)
}

// InMemoryPostStore is a development-only lookup table.
type InMemoryPostStore struct {
	mu    sync.RWMutex
	posts map[string]Post
}

func NewInMemoryPostStore(posts ...Post) *InMemoryPostStore {
	s := &InMemoryPostStore{posts: make(map[string]Post)}
	for _, p := range posts {
		s.posts[p.ID] = p
	}
	return s
}

// Put registers or replaces a post.
func (s *InMemoryPostStore) Put(p Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[p.ID] = p
}

func (s *InMemoryPostStore) Get(_ context.Context, id string) (Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return Post{}, ErrNotFound
	}
	return p, nil
}

type PostgresPostStore struct {
	pool *pgxpool.Pool
}

func NewPostgresPostStore(pool *pgxpool.Pool) *PostgresPostStore {
	return &PostgresPostStore{pool: pool}
}

func (s *PostgresPostStore) Get(ctx context.Context, id string) (Post, error) {
	var p Post
	err := s.pool.QueryRow(ctx, `SELECT id, author_id FROM posts WHERE id = $1`, id).Scan(&p.ID, &p.AuthorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, failure("get post", err)
	}
	return p, nil
}
