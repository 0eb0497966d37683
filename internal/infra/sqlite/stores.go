package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"card-quiz/internal/app"
	"card-quiz/internal/domain"
)

// LeaderboardStore keeps one row per entry, rewritten in one transaction on Save.
type LeaderboardStore struct {
	db *sql.DB
}

func NewLeaderboardStore(db *sql.DB) *LeaderboardStore {
	return &LeaderboardStore{db: db}
}

func (s *LeaderboardStore) Load(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, category, original_time, penalty, final_time, disqualified, answers, run_id, submitted_at
		FROM leaderboard_entries
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0)
	for rows.Next() {
		var (
			e           domain.LeaderboardEntry
			category    int
			answers     sql.NullString
			submittedAt sql.NullString
		)
		if err := rows.Scan(&e.Name, &category, &e.OriginalTime, &e.Penalty, &e.FinalTime,
			&e.Disqualified, &answers, &e.RunID, &submittedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		e.Category = domain.CategoryID(category)
		if answers.Valid {
			if err := json.Unmarshal([]byte(answers.String), &e.Answers); err != nil {
				return nil, fmt.Errorf("%w: answers of %q: %v", app.ErrCorrupt, e.Name, err)
			}
		}
		if submittedAt.Valid && submittedAt.String != "" {
			ts, err := time.Parse(time.RFC3339Nano, submittedAt.String)
			if err != nil {
				return nil, fmt.Errorf("%w: submitted_at of %q: %v", app.ErrCorrupt, e.Name, err)
			}
			e.SubmittedAt = ts
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	return entries, nil
}

func (s *LeaderboardStore) Save(ctx context.Context, entries []domain.LeaderboardEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM leaderboard_entries`); err != nil {
		return fmt.Errorf("clear leaderboard: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO leaderboard_entries
			(position, name, category, original_time, penalty, final_time, disqualified, answers, run_id, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		var answers sql.NullString
		if e.Answers != nil {
			raw, err := json.Marshal(e.Answers)
			if err != nil {
				return fmt.Errorf("encode answers: %w", err)
			}
			answers = sql.NullString{String: string(raw), Valid: true}
		}
		var submittedAt sql.NullString
		if !e.SubmittedAt.IsZero() {
			submittedAt = sql.NullString{String: e.SubmittedAt.UTC().Format(time.RFC3339Nano), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, i, e.Name, int(e.Category), e.OriginalTime, e.Penalty,
			e.FinalTime, e.Disqualified, answers, e.RunID, submittedAt); err != nil {
			return fmt.Errorf("insert leaderboard entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// AnswerKeyStore keeps the single answer key row.
type AnswerKeyStore struct {
	db *sql.DB
}

func NewAnswerKeyStore(db *sql.DB) *AnswerKeyStore {
	return &AnswerKeyStore{db: db}
}

func (s *AnswerKeyStore) Load(ctx context.Context) (domain.AnswerKey, error) {
	var (
		key        domain.AnswerKey
		categories string
		version    int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT penalty_per_incorrect, categories, version FROM answer_keys WHERE id = 1`,
	).Scan(&key.PenaltyPerIncorrect, &categories, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AnswerKey{}, app.ErrNoData
	}
	if err != nil {
		return domain.AnswerKey{}, fmt.Errorf("load answer key: %w", err)
	}
	if err := json.Unmarshal([]byte(categories), &key.Categories); err != nil {
		return domain.AnswerKey{}, fmt.Errorf("%w: answer key categories: %v", app.ErrCorrupt, err)
	}
	key.Version = uint64(version)
	return key, nil
}

func (s *AnswerKeyStore) Save(ctx context.Context, key domain.AnswerKey) error {
	categories := key.Categories
	if categories == nil {
		categories = map[domain.CategoryID]domain.Answers{}
	}
	raw, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("encode answer key: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO answer_keys (id, penalty_per_incorrect, categories, version)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			penalty_per_incorrect = excluded.penalty_per_incorrect,
			categories = excluded.categories,
			version = excluded.version`,
		key.PenaltyPerIncorrect, string(raw), int64(key.Version))
	if err != nil {
		return fmt.Errorf("save answer key: %w", err)
	}
	return nil
}
