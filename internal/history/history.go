// Package history persists query usage events to PostgreSQL. The pipeline
// only writes rows here; it never reads them back for its own logic.
package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ksato/raggate/internal/service"
)

const schema = `
CREATE TABLE IF NOT EXISTS query_history (
	id            UUID PRIMARY KEY,
	query         TEXT NOT NULL,
	user_id       TEXT NOT NULL DEFAULT '',
	result_count  INT NOT NULL,
	gated         BOOLEAN NOT NULL,
	cache_hit     BOOLEAN NOT NULL,
	latency_ms    BIGINT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_query_history_created_at ON query_history (created_at);
`

// Repo records query events into the query_history table.
type Repo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a connection pool, verifies connectivity, and ensures the
// query_history table exists.
func New(ctx context.Context, databaseURL string, logger *slog.Logger) (*Repo, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure query_history schema: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Repo{pool: pool, logger: logger}, nil
}

// Record inserts one usage row. Persistence failures are logged, never
// surfaced: losing a history row must not fail the query it describes.
func (r *Repo) Record(ctx context.Context, ev service.QueryEvent) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO query_history (id, query, user_id, result_count, gated, cache_hit, latency_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New(), ev.Query, ev.UserID, ev.ResultCount, ev.Gated, ev.CacheHit, ev.LatencyMS, ev.CreatedAt,
	)
	if err != nil {
		r.logger.Warn("failed to record query history", "error", err)
	}
}

// Close closes the connection pool.
func (r *Repo) Close() {
	r.pool.Close()
}

// Ensure Repo implements service.Recorder.
var _ service.Recorder = (*Repo)(nil)
