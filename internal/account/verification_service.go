// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// VerificationService confirms email addresses and resends verification mail.
//
// An account moves from unverified (holding a token) to verified (no token)
// exactly once; nothing moves it back.
type VerificationService struct {
	deps ServiceDeps
}

// NewVerificationService creates a new VerificationService.
func NewVerificationService(deps ServiceDeps) (*VerificationService, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &VerificationService{deps: deps}, nil
}

// Verify consumes a verification token and marks its account verified.
// A token that is unknown or already consumed is NOT_FOUND.
func (s *VerificationService) Verify(ctx context.Context, token string) (err error) {
	defer func() { s.deps.Recorder.RecordVerification(ResultOf(err)) }()

	if token == "" {
		return ErrUserNotFound()
	}

	user, err := s.deps.Users.MarkVerified(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUserNotFound()
		}
		return oops.Code("VERIFY_FAILED").
			With("operation", "mark verified").
			Wrap(err)
	}

	s.deps.Logger.InfoContext(ctx, "email verified", "user_id", user.ID.String())
	return nil
}

// Reverify resends the stored verification token to an unverified account.
// The send is synchronous but its failure is only logged.
func (s *VerificationService) Reverify(ctx context.Context, in ReverifyInput) error {
	if err := s.deps.Validator.ValidateReverify(in); err != nil {
		return err
	}

	user, err := s.deps.Users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUserNotFound()
		}
		return oops.Code("REVERIFY_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	if user.Verified || user.VerificationToken == nil {
		return ErrAlreadyVerified()
	}

	msg := VerificationEmail{
		To:        user.Email,
		FirstName: user.FirstName,
		Token:     *user.VerificationToken,
		Link:      VerificationLink(s.deps.PublicBaseURL, *user.VerificationToken),
	}
	//nolint:errcheck // the sender logs and reports failures; reverify still succeeds
	_ = s.deps.Mail.Send(ctx, msg)
	return nil
}
