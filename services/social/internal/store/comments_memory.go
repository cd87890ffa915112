package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryCommentStore is a development-only in-memory implementation.
type InMemoryCommentStore struct {
	mu       sync.RWMutex
	comments map[string]Comment // id -> comment
	now      func() time.Time
	last     time.Time
}

func NewInMemoryCommentStore() *InMemoryCommentStore {
	return &InMemoryCommentStore{
		comments: make(map[string]Comment),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create keeps a caller supplied ID and CreatedAt, which lets fixtures pin them.
func (s *InMemoryCommentStore) Create(_ context.Context, c Comment) (Comment, error) {
	if strings.TrimSpace(c.Body) == "" {
		return Comment{}, invalid("body must not be empty")
	}
	if c.PostID == "" || c.AuthorID == "" {
		return Comment{}, invalid("post_id and author_id are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ParentID != nil {
		parent, ok := s.comments[*c.ParentID]
		if !ok || parent.PostID != c.PostID {
			return Comment{}, invalid("parent %q not found on post %q", *c.ParentID, c.PostID)
		}
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if _, exists := s.comments[c.ID]; exists {
		return Comment{}, ErrConflict
	}
	if c.CreatedAt.IsZero() {
		// strictly increasing so newest-first ordering is stable
		now := s.now()
		if !now.After(s.last) {
			now = s.last.Add(time.Nanosecond)
		}
		s.last = now
		c.CreatedAt = now
	}
	c.UpdatedAt = nil
	s.comments[c.ID] = c
	return c, nil
}

func (s *InMemoryCommentStore) Get(_ context.Context, id string) (Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comments[id]
	if !ok {
		return Comment{}, ErrNotFound
	}
	return c, nil
}

func (s *InMemoryCommentStore) ListByPost(_ context.Context, postID string) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Comment{}
	for _, c := range s.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryCommentStore) ListChildren(_ context.Context, parentID string) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Comment{}
	for _, c := range s.comments {
		if c.ParentID != nil && *c.ParentID == parentID {
			out = append(out, c)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryCommentStore) UpdateBody(_ context.Context, id, body string) error {
	if strings.TrimSpace(body) == "" {
		return invalid("body must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return ErrNotFound
	}
	c.Body = body
	now := s.now()
	c.UpdatedAt = &now
	s.comments[id] = c
	return nil
}

func (s *InMemoryCommentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.comments {
		if c.ParentID != nil && *c.ParentID == id {
			return failure("delete comment", errHasChildren)
		}
	}
	delete(s.comments, id)
	return nil
}

func sortNewestFirst(cs []Comment) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.After(cs[j].CreatedAt)
		}
		return cs[i].ID > cs[j].ID
	})
}
