package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the authentication tables if they do not exist.
// Idempotent; intended to be called once at service start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS user_credentials (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            email TEXT NOT NULL UNIQUE,
            name TEXT NOT NULL DEFAULT '',
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            role TEXT NOT NULL DEFAULT 'user',
            pin_hash TEXT,
            pin_set BOOLEAN NOT NULL DEFAULT FALSE,
            pin_attempts INTEGER NOT NULL DEFAULT 0,
            pin_locked_until TIMESTAMPTZ,
            last_active TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS security_questions (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL REFERENCES user_credentials(id),
            question TEXT NOT NULL,
            answer_hash TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE INDEX IF NOT EXISTS idx_security_questions_user
            ON security_questions (user_id);
        CREATE TABLE IF NOT EXISTS activity_log (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL,
            action TEXT NOT NULL,
            details JSONB,
            ip_address TEXT NOT NULL DEFAULT '',
            user_agent TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE INDEX IF NOT EXISTS idx_activity_log_user_created
            ON activity_log (user_id, created_at DESC);
    `)
	return err
}
