// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/accountd/internal/account"
	"github.com/holomush/accountd/internal/account/postgres"
	"github.com/holomush/accountd/internal/avatar"
	"github.com/holomush/accountd/internal/config"
	"github.com/holomush/accountd/internal/httpapi"
	"github.com/holomush/accountd/internal/logging"
	"github.com/holomush/accountd/internal/mail"
	"github.com/holomush/accountd/internal/observability"
	"github.com/holomush/accountd/internal/store"
	"github.com/holomush/accountd/pkg/errutil"
)

const serviceName = "accountd"

// shutdownTimeout bounds graceful shutdown of every server and the mail queue.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the account HTTP API together with the metrics and health
endpoints. Stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func (d *ServeDeps) setDefaults() {
	if d.PoolFactory == nil {
		d.PoolFactory = func(ctx context.Context, url string) (Pool, error) {
			return store.NewPool(ctx, url, store.PoolOptions{})
		}
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = migratorFactory
	}
	if d.MailerFactory == nil {
		d.MailerFactory = newMailer
	}
	if d.AvatarStoreFactory == nil {
		d.AvatarStoreFactory = newAvatarStore
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, logger)
		}
	}
	if d.ListenerFactory == nil {
		d.ListenerFactory = net.Listen
	}
	if d.Getenv == nil {
		d.Getenv = os.Getenv
	}
}

// runServeWithDeps starts accountd with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	deps.setDefaults()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd.Flags(), deps.Getenv)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.SetDefault(serviceName, version, cfg.LogFormat, logging.WithLevel(level))

	logger.Info("starting accountd",
		"http_addr", cfg.HTTPAddr,
		"metrics_addr", cfg.MetricsAddr,
		"mail_transport", cfg.Mail.Transport,
		"avatar_backend", cfg.Avatars.Backend,
	)

	if cfg.AutoMigrate {
		if err := autoMigrate(cfg.DatabaseURL, deps.MigratorFactory, logger); err != nil {
			return err
		}
	}

	pool, err := deps.PoolFactory(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Metrics are recorded even when the endpoint is disabled.
	var obsServer ObservabilityServer
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, store.PoolChecker{Pool: pool}.Ready, logger)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("METRICS_START_FAILED").With("addr", cfg.MetricsAddr).Wrap(err)
		}
		metrics = obsServer.Metrics()
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	mailer, closeMailer, err := deps.MailerFactory(cfg, logger)
	if err != nil {
		stopObservability(obsServer, logger)
		return err
	}
	defer func() {
		if closeErr := closeMailer(); closeErr != nil {
			errutil.LogError(logger, "closing mail transport", closeErr)
		}
	}()

	dispatcher, err := account.NewMailDispatcher(mailer, account.DispatcherConfig{
		Timeout:  cfg.Mail.Timeout,
		Logger:   logger,
		Recorder: metrics,
	})
	if err != nil {
		stopObservability(obsServer, logger)
		return oops.Code("MAIL_SETUP_FAILED").Wrap(err)
	}

	avatars, err := deps.AvatarStoreFactory(ctx, cfg)
	if err != nil {
		stopObservability(obsServer, logger)
		return err
	}

	handler, err := buildHandler(cfg, pool, dispatcher, avatars, metrics, logger)
	if err != nil {
		stopObservability(obsServer, logger)
		return err
	}

	listener, err := deps.ListenerFactory("tcp", cfg.HTTPAddr)
	if err != nil {
		stopObservability(obsServer, logger)
		return oops.Code("HTTP_LISTEN_FAILED").With("addr", cfg.HTTPAddr).Wrap(err)
	}

	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("accountd started")
	logger.Info("accountd ready", "http_addr", listener.Addr().String())

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errChan:
		runErr = oops.Code("HTTP_SERVE_FAILED").Wrap(err)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping HTTP server", "error", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("verification emails still pending at shutdown", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return runErr
}

// buildHandler wires the account services into the HTTP API.
func buildHandler(
	cfg *config.Config,
	db store.Querier,
	mailSender account.MailSender,
	avatars account.AvatarStore,
	metrics *observability.Metrics,
	logger *slog.Logger,
) (http.Handler, error) {
	tokens, err := account.NewJWTIssuer(account.TokenConfig{
		Secret: []byte(cfg.Token.Secret),
		TTL:    cfg.Token.TTL,
	})
	if err != nil {
		return nil, err
	}

	deps := account.ServiceDeps{
		Users:              postgres.NewUserRepository(db),
		Hasher:             account.NewArgon2idHasher(),
		Tokens:             tokens,
		VerificationTokens: account.UUIDTokenGenerator{},
		Validator:          account.NewValidator(),
		Mail:               mailSender,
		Avatars:            avatars,
		PublicBaseURL:      cfg.PublicBaseURL,
		Logger:             logger,
		Recorder:           metrics,
	}
	accounts, err := account.NewService(deps)
	if err != nil {
		return nil, oops.Code("SERVICE_SETUP_FAILED").Wrap(err)
	}
	verification, err := account.NewVerificationService(deps)
	if err != nil {
		return nil, oops.Code("SERVICE_SETUP_FAILED").Wrap(err)
	}

	opts := httpapi.Options{
		Accounts:       accounts,
		Verification:   verification,
		Logger:         logger,
		Metrics:        metrics,
		RequestTimeout: cfg.RequestTimeout,
		RateLimit: httpapi.RateLimit{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
		},
	}
	if cfg.Avatars.Backend == config.AvatarsLocal {
		opts.AvatarDir = cfg.Avatars.Dir
	}
	return httpapi.NewRouter(opts)
}

// newMailer builds the configured verification mail transport and its closer.
func newMailer(cfg *config.Config, logger *slog.Logger) (account.VerificationMailer, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Mail.Transport {
	case config.MailSMTP:
		m, err := mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.Mail.SMTP.Host,
			Port:     cfg.Mail.SMTP.Port,
			Username: cfg.Mail.SMTP.Username,
			Password: cfg.Mail.SMTP.Password,
			From:     cfg.Mail.From,
		})
		if err != nil {
			return nil, nil, err
		}
		return m, noop, nil
	case config.MailKafka:
		m, err := mail.NewKafkaMailer(mail.NewKafkaWriter(cfg.Mail.Kafka.Brokers, cfg.Mail.Kafka.Topic))
		if err != nil {
			return nil, nil, err
		}
		return m, m.Close, nil
	case config.MailLog:
		return mail.LogMailer{Logger: logger}, noop, nil
	default:
		return nil, nil, oops.Code("CONFIG_INVALID").
			With("key", "mail.transport").
			Errorf("unknown mail transport %q", cfg.Mail.Transport)
	}
}

// newAvatarStore builds the configured avatar backend.
func newAvatarStore(ctx context.Context, cfg *config.Config) (account.AvatarStore, error) {
	switch cfg.Avatars.Backend {
	case config.AvatarsLocal:
		return avatar.NewLocalStore(cfg.Avatars.Dir)
	case config.AvatarsS3:
		opts := avatar.S3Options{
			Bucket:          cfg.Avatars.S3.Bucket,
			Region:          cfg.Avatars.S3.Region,
			Endpoint:        cfg.Avatars.S3.Endpoint,
			PublicURL:       cfg.Avatars.S3.PublicURL,
			AccessKeyID:     cfg.Avatars.S3.AccessKeyID,
			SecretAccessKey: cfg.Avatars.S3.SecretAccessKey,
		}
		client, err := avatar.NewS3Client(ctx, opts)
		if err != nil {
			return nil, err
		}
		return avatar.NewS3Store(client, opts)
	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("key", "avatars.backend").
			Errorf("unknown avatar backend %q", cfg.Avatars.Backend)
	}
}

// autoMigrate applies pending migrations before serving.
func autoMigrate(databaseURL string, factory func(string) (Migrator, error), logger *slog.Logger) error {
	m, err := factory(databaseURL)
	if err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	pending, err := m.PendingMigrations()
	if err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").With("operation", "list pending").Wrap(err)
	}
	if len(pending) == 0 {
		logger.Info("database schema is up to date")
		return nil
	}
	if err := m.Up(); err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").With("operation", "apply").Wrap(err)
	}
	logger.Info("applied database migrations", "count", len(pending))
	return nil
}

func stopObservability(s ObservabilityServer, logger *slog.Logger) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Warn("failed to stop observability server during cleanup", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error.
// It exits when an error arrives, the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
