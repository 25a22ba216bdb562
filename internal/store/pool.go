// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store manages the PostgreSQL connection pool and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Querier is the pgx surface repositories use. *pgxpool.Pool and
// pgxmock pools both satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PoolOptions tunes NewPool.
type PoolOptions struct {
	// ConnectAttempts bounds the initial ping retries. Defaults to 5.
	ConnectAttempts uint64
	// ConnectBackoff is the first retry delay, doubled each attempt. Defaults to 500ms.
	ConnectBackoff time.Duration
	MaxConns       int32
}

// NewPool opens a pgx pool and waits for the database to answer a ping,
// retrying with exponential backoff.
func NewPool(ctx context.Context, databaseURL string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	attempts := opts.ConnectAttempts
	if attempts == 0 {
		attempts = 5
	}
	base := opts.ConnectBackoff
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(base))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			slog.WarnContext(ctx, "database not ready", "error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping").
			With("attempts", attempts).
			Wrap(err)
	}

	return pool, nil
}

// PoolChecker reports pool readiness for health checks.
type PoolChecker struct {
	Pool    interface{ Ping(context.Context) error }
	Timeout time.Duration
}

// Ready pings the database within the checker timeout.
func (c PoolChecker) Ready() bool {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.Pool.Ping(ctx) == nil
}
