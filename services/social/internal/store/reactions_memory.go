package store

import (
	"context"
	"sync"
	"time"
)

type reactionKey struct {
	userID string
	postID string
}

// InMemoryReactionStore is a development-only in-memory implementation.
type InMemoryReactionStore struct {
	mu        sync.RWMutex
	reactions map[reactionKey]Reaction
}

func NewInMemoryReactionStore() *InMemoryReactionStore {
	return &InMemoryReactionStore{reactions: make(map[reactionKey]Reaction)}
}

func (s *InMemoryReactionStore) Find(_ context.Context, userID, postID string) (*Reaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reactions[reactionKey{userID, postID}]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *InMemoryReactionStore) Create(_ context.Context, r Reaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := reactionKey{r.UserID, r.PostID}
	if _, ok := s.reactions[k]; ok {
		return ErrConflict
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.reactions[k] = r
	return nil
}

func (s *InMemoryReactionStore) Update(_ context.Context, userID, postID string, dislike bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := reactionKey{userID, postID}
	r, ok := s.reactions[k]
	if !ok {
		return ErrNotFound
	}
	r.Dislike = dislike
	s.reactions[k] = r
	return nil
}

func (s *InMemoryReactionStore) Delete(_ context.Context, userID, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := reactionKey{userID, postID}
	if _, ok := s.reactions[k]; !ok {
		return ErrNotFound
	}
	delete(s.reactions, k)
	return nil
}

func (s *InMemoryReactionStore) Counts(_ context.Context, postID string) (ReactionCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var c ReactionCounts
	for k, r := range s.reactions {
		if k.postID != postID {
			continue
		}
		if r.Dislike {
			c.Dislikes++
		} else {
			c.Likes++
		}
	}
	return c, nil
}
