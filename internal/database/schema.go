package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer runs a statement. *pgxpool.Pool and pgx.Tx satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Schema creates the journal tables. Every statement is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS auction_view_events (
		id                  UUID PRIMARY KEY,
		auction_id          TEXT        NOT NULL,
		current_highest_bid BIGINT      NOT NULL,
		bid_count           BIGINT      NOT NULL,
		highest_bidder      TEXT        NOT NULL DEFAULT '',
		status              TEXT        NOT NULL DEFAULT '',
		source              TEXT        NOT NULL,
		disconnected        BOOLEAN     NOT NULL DEFAULT FALSE,
		recorded_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS auction_view_events_auction_idx
		ON auction_view_events (auction_id, recorded_at DESC)`,
	`CREATE TABLE IF NOT EXISTS bid_attempts (
		id          UUID PRIMARY KEY,
		auction_id  TEXT        NOT NULL,
		amount      BIGINT      NOT NULL,
		success     BOOLEAN     NOT NULL,
		error_kind  TEXT        NOT NULL DEFAULT '',
		message     TEXT        NOT NULL DEFAULT '',
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS bid_attempts_auction_idx
		ON bid_attempts (auction_id, started_at DESC)`,
}

// EnsureSchema applies Schema in order.
func EnsureSchema(ctx context.Context, db Execer) error {
	for i, stmt := range Schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
