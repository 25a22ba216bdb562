// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/accountd/pkg/errutil"
)

// DefaultMailTimeout bounds a single verification email send.
const DefaultMailTimeout = 15 * time.Second

// VerificationEmail is the message asking a user to confirm their address.
type VerificationEmail struct {
	To        string `json:"to"`
	FirstName string `json:"firstName,omitempty"`
	Token     string `json:"token"`
	Link      string `json:"link"`
}

// VerificationMailer hands a verification email to a transport.
type VerificationMailer interface {
	SendVerification(ctx context.Context, msg VerificationEmail) error
}

// VerificationLink builds the link a user follows to verify their email.
func VerificationLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/api/users/verify/" + token
}

// DispatcherConfig configures a MailDispatcher.
type DispatcherConfig struct {
	// Timeout bounds each send. Defaults to DefaultMailTimeout.
	Timeout time.Duration
	// OnFailure is called after a failed send has been logged.
	OnFailure func(msg VerificationEmail, err error)
	Logger    *slog.Logger
	Recorder  Recorder
}

// MailDispatcher sends verification emails without failing the caller.
// Dispatch runs the send in the background; Send waits for it.
// Either way a failure is logged and reported to OnFailure only.
type MailDispatcher struct {
	mailer    VerificationMailer
	timeout   time.Duration
	onFailure func(VerificationEmail, error)
	logger    *slog.Logger
	recorder  Recorder

	// mu orders wg.Add in Dispatch against Close.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewMailDispatcher creates a MailDispatcher around mailer.
func NewMailDispatcher(mailer VerificationMailer, cfg DispatcherConfig) (*MailDispatcher, error) {
	if mailer == nil {
		return nil, oops.Errorf("verification mailer is required")
	}
	d := &MailDispatcher{
		mailer:    mailer,
		timeout:   cfg.Timeout,
		onFailure: cfg.OnFailure,
		logger:    cfg.Logger,
		recorder:  cfg.Recorder,
	}
	if d.timeout <= 0 {
		d.timeout = DefaultMailTimeout
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.recorder == nil {
		d.recorder = NopRecorder{}
	}
	return d, nil
}

// Dispatch sends msg in the background. The send is detached from any
// request context so it survives the response being written.
func (d *MailDispatcher) Dispatch(msg VerificationEmail) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.fail(msg, oops.Code("MAIL_DISPATCHER_CLOSED").Errorf("mail dispatcher is closed"))
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		//nolint:errcheck // failures are reported through fail
		_ = d.Send(context.Background(), msg)
	}()
}

// Send delivers msg and waits for the transport. The returned error has
// already been logged and reported.
func (d *MailDispatcher) Send(ctx context.Context, msg VerificationEmail) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.mailer.SendVerification(ctx, msg); err != nil {
		wrapped := oops.Code("VERIFICATION_EMAIL_FAILED").
			With("to", msg.To).
			Wrap(err)
		d.fail(msg, wrapped)
		return wrapped
	}

	d.recorder.RecordVerificationEmail(ResultSuccess)
	d.logger.Debug("verification email sent", "to", msg.To)
	return nil
}

// Close stops accepting dispatches and waits for in-flight sends or ctx.
func (d *MailDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return oops.Code("MAIL_DISPATCHER_CLOSE_TIMEOUT").Wrap(ctx.Err())
	}
}

func (d *MailDispatcher) fail(msg VerificationEmail, err error) {
	d.recorder.RecordVerificationEmail(ResultError)
	errutil.LogError(d.logger, "verification email failed", err)
	if d.onFailure != nil {
		d.onFailure(msg, err)
	}
}
