package session

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	state   State
	expires time.Time
}

// MemoryStore is used when Redis is not configured. State is lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[int64]memEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, entries: map[int64]memEntry{}}
}

func (s *MemoryStore) Get(_ context.Context, chatID int64) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[chatID]
	if !ok {
		return State{Kind: Idle}, nil
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, chatID)
		return State{Kind: Idle}, nil
	}
	return e.state, nil
}

func (s *MemoryStore) Set(_ context.Context, chatID int64, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state.IsIdle() {
		delete(s.entries, chatID)
		return nil
	}
	s.entries[chatID] = memEntry{state: state, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, chatID)
	return nil
}
