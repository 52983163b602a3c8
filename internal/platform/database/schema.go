package database

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed by the service.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// DropSchema removes every table created by CreateSchema. Used by tests.
func DropSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		DROP TABLE IF EXISTS votes CASCADE;
		DROP TABLE IF EXISTS submissions CASCADE;
		DROP TABLE IF EXISTS submission_groups CASCADE;
		DROP TABLE IF EXISTS users CASCADE;
	`)
	if err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    hashed_password TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS submission_groups (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL UNIQUE,
    slug TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    created_by TEXT REFERENCES users(id) ON DELETE SET NULL,
    is_completed BOOLEAN NOT NULL DEFAULT FALSE,
    is_judged BOOLEAN NOT NULL DEFAULT FALSE,
    winning_submission_id TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS submissions (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    votes INTEGER NOT NULL DEFAULT 0 CHECK (votes >= 0),
    file_references JSONB NOT NULL DEFAULT '[]'::jsonb,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    submission_group_id TEXT REFERENCES submission_groups(id) ON DELETE SET NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_submissions_user_id ON submissions(user_id);
CREATE INDEX IF NOT EXISTS idx_submissions_group_id ON submissions(submission_group_id);
CREATE INDEX IF NOT EXISTS idx_submissions_created_at ON submissions(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_submissions_file_references ON submissions USING GIN (file_references jsonb_path_ops);

DO $$
BEGIN
    IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'fk_groups_winning_submission') THEN
        ALTER TABLE submission_groups
            ADD CONSTRAINT fk_groups_winning_submission
            FOREIGN KEY (winning_submission_id) REFERENCES submissions(id) ON DELETE SET NULL;
    END IF;
END
$$;

-- One vote per (user, submission); the ledger relies on this constraint for race safety.
CREATE TABLE IF NOT EXISTS votes (
    id TEXT PRIMARY KEY,
    -- RESTRICT: removing a voter must go through the ledger so counters stay exact.
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
    submission_id TEXT NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
    is_upvote BOOLEAN NOT NULL DEFAULT TRUE,
    is_downvote BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT votes_user_submission_key UNIQUE (user_id, submission_id),
    CONSTRAINT votes_direction_check CHECK (NOT (is_upvote AND is_downvote))
);

CREATE INDEX IF NOT EXISTS idx_votes_submission_id ON votes(submission_id);
`
