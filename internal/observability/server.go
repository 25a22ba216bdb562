// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package observability serves accountd Prometheus metrics and health checks
// on a listener separate from the public API.
package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// ReadinessChecker reports whether accountd can serve traffic, typically a database ping.
type ReadinessChecker func() bool

const (
	bodyOK       = "ok\n"
	bodyNotReady = "not ready\n"
)

// Server exposes /metrics, /healthz/liveness and /healthz/readiness.
type Server struct {
	addr     string
	registry *prometheus.Registry
	metrics  *Metrics
	ready    ReadinessChecker
	logger   *slog.Logger

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
}

// NewServer builds a server for addr ("127.0.0.1:9100", or ":0" in tests).
// Go runtime and process collectors are registered next to the accountd metrics.
func NewServer(addr string, ready ReadinessChecker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Server{
		addr:     addr,
		registry: registry,
		metrics:  NewMetrics(registry),
		ready:    ready,
		logger:   logger.With("component", "observability"),
	}
}

// Metrics returns the collectors the account services and HTTP layer record into.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Handler returns the health and metrics routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}))
	r.Get("/healthz/liveness", healthCheck(nil))
	r.Get("/healthz/readiness", healthCheck(s.ready))
	return r
}

// healthCheck answers 200 when check is nil or passes, 503 otherwise.
func healthCheck(check ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")

		status, body := http.StatusOK, bodyOK
		if check != nil && !check() {
			status, body = http.StatusServiceUnavailable, bodyNotReady
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body) //nolint:errcheck // health clients may hang up
	}
}

// Start listens on the configured address and serves in the background.
// The returned channel carries a serve failure, if any, and is closed once
// serving ends.
func (s *Server) Start() (<-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return nil, oops.Code("METRICS_SERVER_RUNNING").
			With("addr", s.Addr()).
			Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, oops.Code("METRICS_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.listener, s.httpServer = listener, srv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := srv.Serve(listener); !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("observability server failed", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("observability server listening", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop shuts the server down, waiting for in-flight scrapes until ctx ends.
// Stopping a server that is not running is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return oops.Code("METRICS_SHUTDOWN_FAILED").With("addr", s.addr).Wrap(err)
	}
	s.httpServer = nil

	s.logger.Info("observability server stopped")
	return nil
}

// Addr is the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
