package repositories

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
)

// migrations are idempotent and applied in order inside one transaction.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                 SERIAL PRIMARY KEY,
		username           TEXT UNIQUE,
		display_name       TEXT NOT NULL DEFAULT '',
		email              TEXT UNIQUE,
		phone              TEXT UNIQUE,
		bot_identity       TEXT UNIQUE,
		password_hash      TEXT,
		refresh_token      TEXT UNIQUE,
		refresh_expires_at TIMESTAMPTZ,
		refresh_revoked    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_progress (
		id            BIGSERIAL PRIMARY KEY,
		user_id       INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		topic_id      INTEGER NOT NULL,
		mastery_level SMALLINT NOT NULL DEFAULT 0 CHECK (mastery_level BETWEEN 0 AND 5),
		last_reviewed TIMESTAMPTZ,
		next_review   TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT user_progress_user_topic_key UNIQUE (user_id, topic_id)
	)`,
	`CREATE INDEX IF NOT EXISTS user_progress_next_review_idx ON user_progress (user_id, next_review)`,
	`CREATE TABLE IF NOT EXISTS quiz_attempts (
		id              BIGSERIAL PRIMARY KEY,
		user_id         INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		topic_id        INTEGER,
		score           SMALLINT NOT NULL CHECK (score BETWEEN 0 AND 100),
		total_questions INTEGER NOT NULL DEFAULT 0,
		correct_answers INTEGER NOT NULL DEFAULT 0,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS quiz_attempts_user_idx ON quiz_attempts (user_id, created_at DESC)`,
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	return RunInTx(ctx, db, func(ctx context.Context, tx *sqlx.Tx) error {
		for i, stmt := range migrations {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %d: %w", i+1, err)
			}
		}
		log.Printf("[db][migrate] applied %d statements", len(migrations))
		return nil
	})
}
