package idempotency

import (
	"context"
	"sync"
	"time"
)

// memoryStore keeps seen ids in process memory with expiry.
// Not shared across instances and lost on restart.
type memoryStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time // id -> expiry
}

func newMemoryStore(ttl time.Duration) *memoryStore {
	return &memoryStore{ttl: ttl, now: time.Now, seen: make(map[string]time.Time)}
}

func (s *memoryStore) Check(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if exp, ok := s.seen[eventID]; ok && now.Before(exp) {
		return true, nil
	}
	s.seen[eventID] = now.Add(s.ttl)
	return false, nil
}

func (s *memoryStore) Release(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, eventID)
	return nil
}
