package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	NotificationLike  = "like"
	NotificationReply = "reply"
)

// Notification is a delivered new-like or new-reply event.
type Notification struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	NotifierID string    `json:"notifier_id"`
	NotifiedID string    `json:"notified_id"`
	PostID     string    `json:"post_id"`
	CommentID  string    `json:"comment_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type NotificationStore interface {
	Create(ctx context.Context, n Notification) (Notification, error)
	// ListForUser returns the newest notifications addressed to userID.
	ListForUser(ctx context.Context, userID string, limit int) ([]Notification, error)
}

// InMemoryNotificationStore is a development-only implementation.
type InMemoryNotificationStore struct {
	mu    sync.RWMutex
	items []Notification
}

func NewInMemoryNotificationStore() *InMemoryNotificationStore {
	return &InMemoryNotificationStore{}
}

func (s *InMemoryNotificationStore) Create(_ context.Context, n Notification) (Notification, error) {
	if n.NotifiedID == "" || n.Type == "" {
		return Notification{}, invalid("notified_id and type are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = uuid.New().String()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	s.items = append(s.items, n)
	return n, nil
}

func (s *InMemoryNotificationStore) ListForUser(_ context.Context, userID string, limit int) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	limit = clampLimit(limit)

	out := []Notification{}
	for _, n := range s.items {
		if n.NotifiedID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type PostgresNotificationStore struct {
	pool *pgxpool.Pool
}

func NewPostgresNotificationStore(pool *pgxpool.Pool) *PostgresNotificationStore {
	return &PostgresNotificationStore{pool: pool}
}

func (s *PostgresNotificationStore) Create(ctx context.Context, n Notification) (Notification, error) {
	if n.NotifiedID == "" || n.Type == "" {
		return Notification{}, invalid("notified_id and type are required")
	}
	const q = `INSERT INTO notifications (event_id, type, notifier_id, notified_id, post_id, comment_id)
	           VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
	           RETURNING id, created_at`
	err := s.pool.QueryRow(ctx, q, n.EventID, n.Type, n.NotifierID, n.NotifiedID, n.PostID, n.CommentID).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return Notification{}, failure("create notification", err)
	}
	return n, nil
}

func (s *PostgresNotificationStore) ListForUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	const q = `SELECT id, event_id, type, notifier_id, notified_id, post_id, COALESCE(comment_id, ''), created_at
	           FROM notifications
	           WHERE notified_id = $1
	           ORDER BY created_at DESC, id DESC
	           LIMIT $2`
	rows, err := s.pool.Query(ctx, q, userID, clampLimit(limit))
	if err != nil {
		return nil, failure("list notifications", err)
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.EventID, &n.Type, &n.NotifierID, &n.NotifiedID, &n.PostID, &n.CommentID, &n.CreatedAt); err != nil {
			return nil, failure("scan notification", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, failure("list notifications", err)
	}
	return out, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 50
	}
	return limit
}
