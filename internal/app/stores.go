package app

import (
	"context"
	"errors"

	"card-quiz/internal/domain"
)

var (
	// ErrNoData is returned by stores that have nothing persisted yet.
	ErrNoData = errors.New("no persisted data")
	// ErrCorrupt is returned by stores whose persisted document cannot be decoded.
	ErrCorrupt = errors.New("persisted data is corrupt")
)

// LeaderboardStore persists the whole ordered leaderboard as one unit. Save
// must be atomic: readers of the medium see either the old or the new list.
type LeaderboardStore interface {
	Load(ctx context.Context) ([]domain.LeaderboardEntry, error)
	Save(ctx context.Context, entries []domain.LeaderboardEntry) error
}

// AnswerKeyStore persists the answer key document.
type AnswerKeyStore interface {
	Load(ctx context.Context) (domain.AnswerKey, error)
	Save(ctx context.Context, key domain.AnswerKey) error
}
