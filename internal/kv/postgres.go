package kv

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"clubsite/internal/apperr"
	"clubsite/internal/metrics"
	"clubsite/pkg/logger"
)

const kvSchema = `CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresTransport keeps every document as one row of kv_store.
type PostgresTransport struct {
	DB *sql.DB
}

func NewPostgresTransport(db *sql.DB) *PostgresTransport {
	return &PostgresTransport{DB: db}
}

// EnsureSchema creates the kv_store table when it is missing.
func (p *PostgresTransport) EnsureSchema(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, kvSchema)
	if err != nil {
		logger.Sugar.Errorf("Failed to create kv_store table: %v", err)
	}
	return err
}

func (p *PostgresTransport) Name() string { return "postgres" }

func (p *PostgresTransport) Get(ctx context.Context, key string) ReadOutcome {
	if key == "" {
		return Failure(0, "", apperr.Invalid("key", "must not be empty"))
	}
	start := time.Now()
	defer func() { metrics.StoreDuration.WithLabelValues("get").Observe(time.Since(start).Seconds()) }()

	var value string
	err := p.DB.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = $1", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return Absent()
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to get key %s: %v", key, err)
		return Failure(0, "", err)
	}
	return Found(value)
}

// Set is a single upsert, so a write to one key is atomic.
func (p *PostgresTransport) Set(ctx context.Context, key, raw string) error {
	if key == "" {
		return apperr.Invalid("key", "must not be empty")
	}
	start := time.Now()
	defer func() { metrics.StoreDuration.WithLabelValues("set").Observe(time.Since(start).Seconds()) }()

	_, err := p.DB.ExecContext(ctx, `INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, key, raw)
	if err != nil {
		logger.Sugar.Errorf("Failed to set key %s: %v", key, err)
		return &apperr.TransportError{Op: "set", Key: key, Err: err}
	}
	return nil
}
