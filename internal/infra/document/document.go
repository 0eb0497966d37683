// Package document holds the JSON encoding shared by the document-style stores.
package document

import (
	"encoding/json"
	"fmt"

	"card-quiz/internal/app"
	"card-quiz/internal/domain"
)

// EncodeLeaderboard renders the ordered leaderboard as a JSON array.
func EncodeLeaderboard(entries []domain.LeaderboardEntry) ([]byte, error) {
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode leaderboard: %w", err)
	}
	return data, nil
}

// DecodeLeaderboard parses a leaderboard document. Empty input is ErrNoData;
// undecodable input is ErrCorrupt.
func DecodeLeaderboard(data []byte) ([]domain.LeaderboardEntry, error) {
	if len(data) == 0 {
		return nil, app.ErrNoData
	}
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: leaderboard: %v", app.ErrCorrupt, err)
	}
	return entries, nil
}

// EncodeAnswerKey renders the answer key document.
func EncodeAnswerKey(key domain.AnswerKey) ([]byte, error) {
	if key.Categories == nil {
		key.Categories = map[domain.CategoryID]domain.Answers{}
	}
	data, err := json.MarshalIndent(key, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode answer key: %w", err)
	}
	return data, nil
}

// DecodeAnswerKey parses an answer key document. A document without the
// categories object is treated as corrupt.
func DecodeAnswerKey(data []byte) (domain.AnswerKey, error) {
	if len(data) == 0 {
		return domain.AnswerKey{}, app.ErrNoData
	}
	var raw struct {
		PenaltyPerIncorrect *int                                 `json:"penalty_per_incorrect"`
		Categories          map[domain.CategoryID]domain.Answers `json:"categories"`
		Version             uint64                               `json:"version"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.AnswerKey{}, fmt.Errorf("%w: answer key: %v", app.ErrCorrupt, err)
	}
	if raw.PenaltyPerIncorrect == nil || raw.Categories == nil {
		return domain.AnswerKey{}, fmt.Errorf("%w: answer key: missing penalty_per_incorrect or categories", app.ErrCorrupt)
	}
	return domain.AnswerKey{
		PenaltyPerIncorrect: *raw.PenaltyPerIncorrect,
		Categories:          raw.Categories,
		Version:             raw.Version,
	}, nil
}
