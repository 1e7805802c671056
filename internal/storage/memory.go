package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/user/sitewatch/internal/domain"
)

// ErrNotFound is returned when a key has no recorded value.
var ErrNotFound = errors.New("not found")

// MemoryStore keeps statuses, outcomes and preferences in process memory.
// It is used when no Redis or PostgreSQL backend is configured, and in tests.
type MemoryStore struct {
	mu          sync.RWMutex
	statuses    map[string]domain.TrackState
	outcomes    []*domain.Outcome
	preferences map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		statuses:    make(map[string]domain.TrackState),
		preferences: make(map[string]string),
	}
}

func (s *MemoryStore) SetStatus(_ context.Context, siteID string, state domain.TrackState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[siteID] = state
	return nil
}

func (s *MemoryStore) GetStatus(_ context.Context, siteID string) (domain.TrackState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.statuses[siteID]
	if !ok {
		return "", ErrNotFound
	}
	return state, nil
}

func (s *MemoryStore) DeleteStatus(_ context.Context, siteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.statuses, siteID)
	return nil
}

func (s *MemoryStore) Record(_ context.Context, outcome *domain.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *outcome
	if cp.RecordedAt.IsZero() {
		cp.RecordedAt = time.Now()
	}
	s.outcomes = append(s.outcomes, &cp)
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, limit int) ([]*domain.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Outcome
	for i := len(s.outcomes) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		cp := *s.outcomes[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.preferences[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preferences[key] = value
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
