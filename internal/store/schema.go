// Package store persists user accounts and analysis results in PostgreSQL.
//
// All operations share a single [pgxpool.Pool]. [Migrate] creates the schema
// idempotently, so a fresh database only needs a reachable DSN.
//
// Usage:
//
//	st, err := store.New(ctx, dsn)
//	if err != nil { … }
//	defer st.Close()
//
//	_ = st.SaveAnalysis(ctx, rec)
//	recent, _ := st.History(ctx, "priya", 20)
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlUsers = `
CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL    PRIMARY KEY,
    username      TEXT         NOT NULL UNIQUE,
    password_hash TEXT         NOT NULL,
    created_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

const ddlRecordings = `
CREATE TABLE IF NOT EXISTS recordings (
    id             BIGSERIAL         PRIMARY KEY,
    session_id     TEXT              NOT NULL,
    username       TEXT              NOT NULL REFERENCES users (username),
    transcript     TEXT              NOT NULL,
    corrected_text TEXT              NOT NULL DEFAULT '',
    grammar_score  DOUBLE PRECISION  NOT NULL DEFAULT 0,
    fluency        JSONB             NOT NULL DEFAULT '[]',
    errors         JSONB             NOT NULL DEFAULT '[]',
    audio_file     TEXT              NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ       NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_recordings_username
    ON recordings (username);

CREATE INDEX IF NOT EXISTS idx_recordings_username_created
    ON recordings (username, created_at DESC);
`

// Migrate creates or ensures all required tables and indexes exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, ddl := range []string{ddlUsers, ddlRecordings} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("store: apply schema: %w", err)
		}
	}
	return nil
}
