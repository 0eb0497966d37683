package file

import (
	"context"
	"path/filepath"
	"sync"

	"card-quiz/internal/domain"
	"card-quiz/internal/infra/document"
)

// LeaderboardStore keeps the leaderboard in <dir>/leaderboard.json.
type LeaderboardStore struct {
	path string
	mu   sync.Mutex
}

func NewLeaderboardStore(dir string) *LeaderboardStore {
	return &LeaderboardStore{path: filepath.Join(dir, LeaderboardFile)}
}

func (s *LeaderboardStore) Path() string { return s.path }

func (s *LeaderboardStore) Load(_ context.Context) ([]domain.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := readFile(s.path)
	if err != nil {
		return nil, err
	}
	return document.DecodeLeaderboard(data)
}

func (s *LeaderboardStore) Save(_ context.Context, entries []domain.LeaderboardEntry) error {
	data, err := document.EncodeLeaderboard(entries)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.path, data)
}

// AnswerKeyStore keeps the answer key in <dir>/answer_key.json.
type AnswerKeyStore struct {
	path string
	mu   sync.Mutex
}

func NewAnswerKeyStore(dir string) *AnswerKeyStore {
	return &AnswerKeyStore{path: filepath.Join(dir, AnswerKeyFile)}
}

func (s *AnswerKeyStore) Path() string { return s.path }

func (s *AnswerKeyStore) Load(_ context.Context) (domain.AnswerKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := readFile(s.path)
	if err != nil {
		return domain.AnswerKey{}, err
	}
	return document.DecodeAnswerKey(data)
}

func (s *AnswerKeyStore) Save(_ context.Context, key domain.AnswerKey) error {
	data, err := document.EncodeAnswerKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.path, data)
}
