// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/holomush/accountd/internal/account"
	"github.com/holomush/accountd/internal/config"
	"github.com/holomush/accountd/internal/observability"
	"github.com/holomush/accountd/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolFactory opens the database pool.
	// Default: store.NewPool
	PoolFactory func(ctx context.Context, url string) (Pool, error)

	// MigratorFactory opens a migrator for auto-migration.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)

	// MailerFactory builds the verification mail transport.
	// Default: newMailer
	MailerFactory func(cfg *config.Config, logger *slog.Logger) (account.VerificationMailer, func() error, error)

	// AvatarStoreFactory builds avatar storage.
	// Default: newAvatarStore
	AvatarStoreFactory func(ctx context.Context, cfg *config.Config) (account.AvatarStore, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// ListenerFactory creates the HTTP API listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)

	// Getenv looks up secret environment variables.
	// Default: os.Getenv
	Getenv func(string) string
}

// Pool is the database handle serve needs. *pgxpool.Pool satisfies it.
type Pool interface {
	store.Querier
	Ping(ctx context.Context) error
	Close()
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}
