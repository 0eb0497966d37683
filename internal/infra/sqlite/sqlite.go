// Package sqlite stores collector documents in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS leaderboard_entries (
	position      INTEGER NOT NULL PRIMARY KEY,
	name          TEXT    NOT NULL,
	category      INTEGER NOT NULL,
	original_time REAL    NOT NULL,
	penalty       INTEGER NOT NULL,
	final_time    REAL    NOT NULL,
	disqualified  INTEGER NOT NULL,
	answers       TEXT,
	run_id        TEXT    NOT NULL DEFAULT '',
	submitted_at  TEXT,
	UNIQUE (name, category)
);
CREATE TABLE IF NOT EXISTS answer_keys (
	id                    INTEGER NOT NULL PRIMARY KEY CHECK (id = 1),
	penalty_per_incorrect INTEGER NOT NULL,
	categories            TEXT    NOT NULL,
	version               INTEGER NOT NULL
);`

// Open opens (creating if needed) the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	log.Info().Str("path", path).Msg("sqlite database ready")
	return db, nil
}
