// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mail

import (
	"context"
	"log/slog"

	"github.com/holomush/accountd/internal/account"
)

// LogMailer logs verification links instead of sending them. For local development.
type LogMailer struct {
	Logger *slog.Logger
}

var _ account.VerificationMailer = LogMailer{}

// SendVerification logs msg at info level.
func (m LogMailer) SendVerification(ctx context.Context, msg account.VerificationEmail) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "verification email",
		"to", msg.To,
		"link", msg.Link,
	)
	return nil
}
