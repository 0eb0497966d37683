package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"card-quiz/internal/app"
	"card-quiz/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// LeaderboardStore keeps one row per leaderboard entry. Save rewrites the
// table inside a single transaction.
type LeaderboardStore struct {
	pool *pgxpool.Pool
}

func NewLeaderboardStore(pool *pgxpool.Pool) *LeaderboardStore {
	return &LeaderboardStore{pool: pool}
}

func (s *LeaderboardStore) Load(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx, `
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
			category    int16
			rawAnswers  []byte
			submittedAt *time.Time
		)
		if err := rows.Scan(&e.Name, &category, &e.OriginalTime, &e.Penalty, &e.FinalTime,
			&e.Disqualified, &rawAnswers, &e.RunID, &submittedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		e.Category = domain.CategoryID(category)
		if rawAnswers != nil {
			if err := json.Unmarshal(rawAnswers, &e.Answers); err != nil {
				return nil, fmt.Errorf("%w: answers of %q: %v", app.ErrCorrupt, e.Name, err)
			}
		}
		if submittedAt != nil {
			e.SubmittedAt = submittedAt.UTC()
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	return entries, nil
}

func (s *LeaderboardStore) Save(ctx context.Context, entries []domain.LeaderboardEntry) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM leaderboard_entries`); err != nil {
			return fmt.Errorf("clear leaderboard: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for i, e := range entries {
			answers, err := encodeAnswers(e.Answers)
			if err != nil {
				return err
			}
			var submittedAt *time.Time
			if !e.SubmittedAt.IsZero() {
				ts := e.SubmittedAt
				submittedAt = &ts
			}
			batch.Queue(`
				INSERT INTO leaderboard_entries
					(position, name, category, original_time, penalty, final_time, disqualified, answers, run_id, submitted_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10)`,
				i, e.Name, int16(e.Category), e.OriginalTime, e.Penalty, e.FinalTime,
				e.Disqualified, answers, e.RunID, submittedAt)
		}
		br := tx.SendBatch(ctx, batch)
		for range entries {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("insert leaderboard entry: %w", err)
			}
		}
		return br.Close()
	})
}

func (s *LeaderboardStore) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// encodeAnswers returns nil for legacy entries so the column stays NULL.
func encodeAnswers(a domain.Answers) (*string, error) {
	if a == nil {
		return nil, nil
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	s := string(raw)
	return &s, nil
}

// AnswerKeyStore keeps the single answer key row.
type AnswerKeyStore struct {
	pool *pgxpool.Pool
}

func NewAnswerKeyStore(pool *pgxpool.Pool) *AnswerKeyStore {
	return &AnswerKeyStore{pool: pool}
}

func (s *AnswerKeyStore) Load(ctx context.Context) (domain.AnswerKey, error) {
	var (
		key        domain.AnswerKey
		categories []byte
		version    int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT penalty_per_incorrect, categories, version FROM answer_keys WHERE id = 1`,
	).Scan(&key.PenaltyPerIncorrect, &categories, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AnswerKey{}, app.ErrNoData
	}
	if err != nil {
		return domain.AnswerKey{}, fmt.Errorf("load answer key: %w", err)
	}
	if err := json.Unmarshal(categories, &key.Categories); err != nil {
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
	_, err = s.pool.Exec(ctx, `
		INSERT INTO answer_keys (id, penalty_per_incorrect, categories, version, updated_at)
		VALUES (1, $1, $2::jsonb, $3, now())
		ON CONFLICT (id) DO UPDATE SET
			penalty_per_incorrect = EXCLUDED.penalty_per_incorrect,
			categories = EXCLUDED.categories,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at`,
		key.PenaltyPerIncorrect, string(raw), int64(key.Version))
	if err != nil {
		return fmt.Errorf("save answer key: %w", err)
	}
	return nil
}
