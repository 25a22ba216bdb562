// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/accountd/internal/account"
)

// Metrics holds the accountd Prometheus collectors. It implements
// account.Recorder.
type Metrics struct {
	SignupsTotal            *prometheus.CounterVec
	LoginsTotal             *prometheus.CounterVec
	VerificationsTotal      *prometheus.CounterVec
	VerificationEmailsTotal *prometheus.CounterVec
	HTTPRequestDuration     *prometheus.HistogramVec
}

var _ account.Recorder = (*Metrics)(nil)

// NewMetrics creates and registers the accountd metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	result := []string{"result"}
	m := &Metrics{
		SignupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accountd_signups_total",
			Help: "Total number of signup attempts by result",
		}, result),
		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accountd_logins_total",
			Help: "Total number of login attempts by result",
		}, result),
		VerificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accountd_verifications_total",
			Help: "Total number of email verification attempts by result",
		}, result),
		VerificationEmailsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accountd_verification_emails_total",
			Help: "Total number of verification emails handed to the transport by result",
		}, result),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "accountd_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern, method and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}

	reg.MustRegister(
		m.SignupsTotal,
		m.LoginsTotal,
		m.VerificationsTotal,
		m.VerificationEmailsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

func (m *Metrics) RecordSignup(result string) { m.SignupsTotal.WithLabelValues(result).Inc() }

func (m *Metrics) RecordLogin(result string) { m.LoginsTotal.WithLabelValues(result).Inc() }

func (m *Metrics) RecordVerification(result string) {
	m.VerificationsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordVerificationEmail(result string) {
	m.VerificationEmailsTotal.WithLabelValues(result).Inc()
}

// ObserveHTTP records one served request. route is the router pattern, not
// the raw path, so label cardinality stays bounded.
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequestDuration.
		WithLabelValues(route, method, strconv.Itoa(status)).
		Observe(elapsed.Seconds())
}
