package db

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates the tables the service needs when they do not exist.
// It is safe to run on every start.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaPostgres); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS auth_sessions (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	session_token_hash TEXT NOT NULL UNIQUE,
	expires_at TIMESTAMPTZ NOT NULL,
	revoked_at TIMESTAMPTZ,
	ip_address TEXT,
	user_agent TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_auth_sessions_user ON auth_sessions(user_id);

CREATE TABLE IF NOT EXISTS auth_guard_states (
	purpose TEXT NOT NULL,
	subject_key TEXT NOT NULL,
	failed_count INT NOT NULL DEFAULT 0,
	locked_until TIMESTAMPTZ,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (purpose, subject_key)
);

CREATE TABLE IF NOT EXISTS quizzes (
	id BIGSERIAL PRIMARY KEY,
	author_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	cover_image TEXT NOT NULL,
	is_published BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_quizzes_author ON quizzes(author_id);
CREATE INDEX IF NOT EXISTS idx_quizzes_created ON quizzes(created_at DESC);

CREATE TABLE IF NOT EXISTS questions (
	id BIGSERIAL PRIMARY KEY,
	quiz_id BIGINT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
	position INT NOT NULL,
	question_text TEXT NOT NULL,
	question_type TEXT NOT NULL CHECK (question_type IN ('two_choices', 'four_choices', 'input')),
	options JSONB NOT NULL DEFAULT '[]'::jsonb,
	correct_answer TEXT,
	explanation TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_questions_quiz_position ON questions(quiz_id, position);

CREATE TABLE IF NOT EXISTS quiz_attempts (
	id BIGSERIAL PRIMARY KEY,
	quiz_id BIGINT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
	respondent_name TEXT NOT NULL DEFAULT '',
	user_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
	score INT NOT NULL,
	total INT NOT NULL,
	percentage INT NOT NULL,
	answers JSONB NOT NULL DEFAULT '{}'::jsonb,
	submitted_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_quiz_attempts_quiz ON quiz_attempts(quiz_id, submitted_at DESC);
`
