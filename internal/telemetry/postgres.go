package telemetry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time interface check.
var _ Sink = (*PGSink)(nil)

// schema creates the intent_events table on first connect. Slots and context
// tags are stored as JSONB so that ad-hoc queries over slot values stay
// possible without schema changes.
const schema = `
CREATE TABLE IF NOT EXISTS intent_events (
    id           BIGSERIAL PRIMARY KEY,
    ts           TIMESTAMPTZ NOT NULL,
    intent       TEXT NOT NULL,
    confidence   DOUBLE PRECISION NOT NULL,
    backend_used TEXT NOT NULL,
    latency_ms   BIGINT,
    slots        JSONB,
    context_tags JSONB
);
CREATE INDEX IF NOT EXISTS intent_events_ts_idx ON intent_events (ts);
CREATE INDEX IF NOT EXISTS intent_events_intent_idx ON intent_events (intent);
`

// PGSink persists events in a PostgreSQL table. All operations are safe for
// concurrent use; the pool handles its own locking.
type PGSink struct {
	pool *pgxpool.Pool
}

// NewPGSink establishes a connection pool to the database at dsn and ensures
// the intent_events table exists.
func NewPGSink(ctx context.Context, dsn string) (*PGSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("telemetry: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("telemetry: migrate: %w", err)
	}
	return &PGSink{pool: pool}, nil
}

// LogIntentEvent inserts ev as one row.
func (s *PGSink) LogIntentEvent(ctx context.Context, ev Event) error {
	slots, err := json.Marshal(ev.Slots)
	if err != nil {
		return fmt.Errorf("telemetry: marshal slots: %w", err)
	}
	tags, err := json.Marshal(ev.ContextTags)
	if err != nil {
		return fmt.Errorf("telemetry: marshal context tags: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO intent_events (ts, intent, confidence, backend_used, latency_ms, slots, context_tags)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.Timestamp, ev.Intent, ev.Confidence, ev.Backend, ev.LatencyMs, slots, tags,
	)
	if err != nil {
		return fmt.Errorf("telemetry: insert: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable. Used by readiness checks.
func (s *PGSink) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all connections held by the pool.
func (s *PGSink) Close() {
	s.pool.Close()
}
