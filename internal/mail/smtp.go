// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mail

import (
	"context"
	"crypto/tls"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/accountd/internal/account"
)

// SMTPConfig configures SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// TLSConfig is used for STARTTLS. Defaults to ServerName = Host.
	TLSConfig *tls.Config
}

// SMTPMailer delivers verification emails over SMTP, upgrading with
// STARTTLS when the server offers it.
type SMTPMailer struct {
	cfg    SMTPConfig
	dialer net.Dialer
}

var _ account.VerificationMailer = (*SMTPMailer)(nil)

// NewSMTPMailer creates an SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, oops.Code("SMTP_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, oops.Code("SMTP_CONFIG_INVALID").Errorf("sender address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.TLSConfig == nil {
		cfg.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	}
	return &SMTPMailer{cfg: cfg}, nil
}

// SendVerification sends msg. ctx bounds the whole SMTP exchange.
func (m *SMTPMailer) SendVerification(ctx context.Context, msg account.VerificationEmail) error {
	body, err := RenderVerification(msg)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	conn, err := m.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return oops.Code("SMTP_DIAL_FAILED").With("addr", addr).Wrap(err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := m.deliver(conn, msg.To, buildMessage(m.cfg.From, msg.To, body, time.Now())); err != nil {
		_ = conn.Close()
		return oops.Code("SMTP_SEND_FAILED").With("addr", addr).With("to", msg.To).Wrap(err)
	}
	return nil
}

func (m *SMTPMailer) deliver(conn net.Conn, to string, data []byte) error {
	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return err //nolint:wrapcheck // wrapped by SendVerification
	}
	defer func() { _ = c.Close() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(m.cfg.TLSConfig); err != nil {
			return err //nolint:wrapcheck // wrapped by SendVerification
		}
	}
	if m.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
				return err //nolint:wrapcheck // wrapped by SendVerification
			}
		}
	}
	if err := c.Mail(m.cfg.From); err != nil {
		return err //nolint:wrapcheck // wrapped by SendVerification
	}
	if err := c.Rcpt(to); err != nil {
		return err //nolint:wrapcheck // wrapped by SendVerification
	}
	w, err := c.Data()
	if err != nil {
		return err //nolint:wrapcheck // wrapped by SendVerification
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err //nolint:wrapcheck // wrapped by SendVerification
	}
	if err := w.Close(); err != nil {
		return err //nolint:wrapcheck // wrapped by SendVerification
	}
	return c.Quit() //nolint:wrapcheck // wrapped by SendVerification
}

func buildMessage(from, to, htmlBody string, now time.Time) []byte {
	headers := []string{
		"From: " + from,
		"To: " + to,
		"Subject: " + mime.QEncoding.Encode("utf-8", VerificationSubject),
		"Date: " + now.Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
	}
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + htmlBody)
}
