package memory

import (
	"context"
	"sync"

	"card-quiz/internal/domain"
	"card-quiz/internal/infra/document"
)

// LeaderboardStore keeps the encoded leaderboard document in process memory.
// Documents are kept encoded so callers never share entry maps with the store.
type LeaderboardStore struct {
	mu    sync.RWMutex
	data  []byte
	saves int
}

func NewLeaderboardStore() *LeaderboardStore {
	return &LeaderboardStore{}
}

func (s *LeaderboardStore) Load(_ context.Context) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return document.DecodeLeaderboard(s.data)
}

func (s *LeaderboardStore) Save(_ context.Context, entries []domain.LeaderboardEntry) error {
	data, err := document.EncodeLeaderboard(entries)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.saves++
	s.mu.Unlock()
	return nil
}

// Raw returns a copy of the last saved document.
func (s *LeaderboardStore) Raw() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.data...)
}

// SetRaw replaces the stored document verbatim.
func (s *LeaderboardStore) SetRaw(data []byte) {
	s.mu.Lock()
	s.data = append([]byte(nil), data...)
	s.mu.Unlock()
}

// Saves counts successful Save calls.
func (s *LeaderboardStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
