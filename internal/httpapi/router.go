// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package httpapi exposes the account services over HTTP.
package httpapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"
)

// DefaultMaxAvatarBytes bounds an avatar upload request.
const DefaultMaxAvatarBytes = 5 << 20

// RateLimit throttles the unauthenticated auth routes per client IP.
// Zero Requests disables it.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// Options configures NewRouter.
type Options struct {
	Accounts     AccountService
	Verification VerificationService
	Logger       *slog.Logger
	// Metrics is optional.
	Metrics HTTPObserver
	// RequestTimeout defaults to 30s.
	RequestTimeout time.Duration
	RateLimit      RateLimit
	// AvatarDir, when set, is served under /avatars/.
	AvatarDir      string
	MaxAvatarBytes int64
	// SSLRedirect redirects plain HTTP requests to HTTPS.
	SSLRedirect bool
}

// NewRouter builds the HTTP API.
func NewRouter(opts Options) (http.Handler, error) {
	if opts.Accounts == nil {
		return nil, oops.Code("HTTPAPI_CONFIG_INVALID").Errorf("account service is required")
	}
	if opts.Verification == nil {
		return nil, oops.Code("HTTPAPI_CONFIG_INVALID").Errorf("verification service is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxAvatar := opts.MaxAvatarBytes
	if maxAvatar <= 0 {
		maxAvatar = DefaultMaxAvatarBytes
	}

	h := &handlers{
		accounts:       opts.Accounts,
		verification:   opts.Verification,
		logger:         logger,
		maxAvatarBytes: maxAvatar,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(opts.SSLRedirect))
	if opts.Metrics != nil {
		r.Use(observe(opts.Metrics))
	}
	r.Use(middleware.Timeout(timeout))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeProblem(w, Problem{Title: http.StatusText(http.StatusNotFound), Status: http.StatusNotFound, Code: "ROUTE_NOT_FOUND"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeProblem(w, Problem{Title: http.StatusText(http.StatusMethodNotAllowed), Status: http.StatusMethodNotAllowed, Code: "METHOD_NOT_ALLOWED"})
	})

	r.Get("/healthz", healthz)

	r.Route("/api/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if opts.RateLimit.Requests > 0 {
				r.Use(rateLimit(opts.RateLimit.Requests, opts.RateLimit.Window))
			}
			r.Post("/signup", h.signup)
			r.Post("/login", h.login)
			r.Get("/verify/{verificationToken}", h.verifyEmail)
			r.Post("/verify", h.reverify)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireSession(opts.Accounts, logger))
			r.Get("/logout", h.logout)
			r.Post("/logout", h.logout)
			r.Get("/current", h.current)
			r.Patch("/", h.updateSubscription)
			r.Patch("/avatars", h.updateAvatar)
		})
	})

	if opts.AvatarDir != "" {
		r.Handle("/avatars/*", http.StripPrefix("/avatars/", noListing(http.FileServer(http.Dir(opts.AvatarDir)))))
	}

	return r, nil
}

// noListing hides directory indexes.
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
