package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	email      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS watches (
	id                     UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	owner_id               TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	campground_id          TEXT NOT NULL,
	arrival_date           DATE NOT NULL,
	departure_date         DATE NOT NULL,
	guests                 INT  NOT NULL CHECK (guests > 0),
	site_type              TEXT,
	max_price              NUMERIC(10, 2),
	site_ids               TEXT[] NOT NULL DEFAULT '{}',
	check_interval_minutes INT  NOT NULL CHECK (check_interval_minutes > 0),
	is_active              BOOLEAN NOT NULL DEFAULT true,
	notify_only            BOOLEAN NOT NULL DEFAULT true,
	last_checked_at        TIMESTAMPTZ,
	next_check_at          TIMESTAMPTZ,
	last_result            TEXT,
	last_error             TEXT,
	found_count            INT NOT NULL DEFAULT 0,
	last_found_sites       JSONB,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK (departure_date > arrival_date),
	CHECK (next_check_at IS NULL OR last_checked_at IS NULL OR next_check_at >= last_checked_at)
);

CREATE INDEX IF NOT EXISTS idx_watches_active_next ON watches (next_check_at) WHERE is_active;

CREATE TABLE IF NOT EXISTS queue_entries (
	id                     UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	owner_id               TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	booking_id             TEXT NOT NULL,
	booking_reference      TEXT NOT NULL,
	is_active              BOOLEAN NOT NULL DEFAULT true,
	check_interval_minutes INT NOT NULL CHECK (check_interval_minutes > 0),
	attempts_count         INT NOT NULL DEFAULT 0,
	max_attempts           INT NOT NULL CHECK (max_attempts > 0),
	last_checked_at        TIMESTAMPTZ,
	next_check_at          TIMESTAMPTZ,
	last_result            TEXT,
	last_error             TEXT,
	success_date           TIMESTAMPTZ,
	new_booking_reference  TEXT,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (owner_id, booking_reference),
	CHECK (attempts_count <= max_attempts)
);

CREATE INDEX IF NOT EXISTS idx_queue_entries_active_next ON queue_entries (next_check_at) WHERE is_active;

CREATE TABLE IF NOT EXISTS admission_session (
	id                 SMALLINT PRIMARY KEY CHECK (id = 1),
	session_key        TEXT NOT NULL,
	status             TEXT NOT NULL,
	queue_position     INT,
	estimated_wait_sec INT,
	expires_at         TIMESTAMPTZ,
	created_at         TIMESTAMPTZ NOT NULL,
	last_checked_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS job_logs (
	id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	kind         TEXT NOT NULL,
	entity_id    TEXT,
	trigger      TEXT NOT NULL,
	status       TEXT,
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	duration_ms  BIGINT,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_job_logs_started_at ON job_logs (started_at);

CREATE TABLE IF NOT EXISTS notifications (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	owner_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	kind       TEXT NOT NULL,
	entity_id  TEXT NOT NULL,
	title      TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_notifications_created_at ON notifications (created_at);
`

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
