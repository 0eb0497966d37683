package app

import (
	"context"
	"time"

	"card-quiz/internal/domain"
)

// RunAccepted is published for every valid submission, stored or not.
type RunAccepted struct {
	RunID        string            `json:"run_id"`
	Name         string            `json:"name"`
	Category     domain.CategoryID `json:"category"`
	OriginalTime float64           `json:"original_time"`
	Penalty      int               `json:"penalty"`
	FinalTime    float64           `json:"final_time"`
	Disqualified bool              `json:"disqualified"`
	Stored       bool              `json:"stored"`
	At           time.Time         `json:"at"`
}

// LeaderboardRecomputed is published after an answer key replacement.
type LeaderboardRecomputed struct {
	KeyVersion uint64    `json:"key_version"`
	Entries    int       `json:"entries"`
	At         time.Time `json:"at"`
}

// EventPublisher fans collector events out to other systems.
type EventPublisher interface {
	PublishRunAccepted(ctx context.Context, ev RunAccepted) error
	PublishLeaderboardRecomputed(ctx context.Context, ev LeaderboardRecomputed) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishRunAccepted(context.Context, RunAccepted) error { return nil }

func (NopPublisher) PublishLeaderboardRecomputed(context.Context, LeaderboardRecomputed) error {
	return nil
}
