// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"errors"

	"github.com/samber/oops"

	"github.com/holomush/accountd/pkg/errutil"
)

// Repository sentinels. Implementations wrap these so callers can use errors.Is.
var (
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a unique column (email, verification token) collides.
	ErrDuplicate = errors.New("duplicate")
)

// Error codes surfaced to callers. The transport layer maps each to a status.
const (
	CodeValidation       = "VALIDATION_FAILED"
	CodeAlreadyVerified  = "ALREADY_VERIFIED"
	CodeConflict         = "ACCOUNT_CONFLICT"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeTokenInvalid     = "TOKEN_INVALID"
	CodeTokenExpired     = "TOKEN_EXPIRED"
	CodeEmailNotVerified = "EMAIL_NOT_VERIFIED"
	CodeNotFound         = "NOT_FOUND"
)

// Client-facing messages.
const (
	MsgValidation       = "Input data validation error"
	MsgEmailInUse       = "Email in use"
	MsgFirstNameInUse   = "Firstname in use"
	MsgBadCredentials   = "Email or password is wrong"
	MsgEmailNotVerified = "E-mail is not verified"
	MsgNotAuthorized    = "Not authorized"
	MsgUserNotFound     = "User not found"
	MsgAlreadyVerified  = "Verification has already been passed"
	MsgMissingEmail     = "missing required field email"
	MsgInvalidTier      = "Invalid subscription value. It should be one of ['starter', 'pro', 'business']."
	MsgMissingFile      = "File is required"
	MsgInternal         = "Internal Server Error"
)

// ErrValidation creates a validation error. fields maps a field name to the rule it broke.
func ErrValidation(message string, fields map[string]string) error {
	b := oops.Code(CodeValidation).With("message", message)
	if len(fields) > 0 {
		b = b.With("fields", fields)
	}
	return b.Errorf("validation failed: %s", message)
}

// ErrConflict creates a conflict error naming the colliding field.
func ErrConflict(field, message string) error {
	return oops.Code(CodeConflict).
		With("field", field).
		With("message", message).
		Errorf("account conflict on %s", field)
}

// ErrUnauthorized creates the generic authentication failure.
func ErrUnauthorized(message string) error {
	return oops.Code(CodeUnauthorized).
		With("message", message).
		Errorf("unauthorized")
}

// ErrEmailNotVerified is returned by Login for accounts that have not confirmed their email.
func ErrEmailNotVerified() error {
	return oops.Code(CodeEmailNotVerified).Errorf("email is not verified")
}

// ErrUserNotFound creates a not found error for a user lookup.
func ErrUserNotFound() error {
	return oops.Code(CodeNotFound).Errorf("user not found")
}

// ErrAlreadyVerified is returned by Reverify when the account is already verified.
func ErrAlreadyVerified() error {
	return oops.Code(CodeAlreadyVerified).Errorf("verification has already been passed")
}

// ErrorCode returns the oops code carried by err, or "" if there is none.
func ErrorCode(err error) string {
	return errutil.Code(err)
}

// PublicMessage extracts a client-facing message from an error.
// Internal failures never leak their text.
func PublicMessage(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return MsgInternal
	}

	override, _ := oopsErr.Context()["message"].(string) //nolint:errcheck // absent message falls through to the default

	switch ErrorCode(err) {
	case CodeValidation:
		if override != "" {
			return override
		}
		return MsgValidation
	case CodeConflict:
		if override != "" {
			return override
		}
		return MsgEmailInUse
	case CodeUnauthorized:
		if override != "" {
			return override
		}
		return MsgNotAuthorized
	case CodeTokenInvalid, CodeTokenExpired:
		return MsgNotAuthorized
	case CodeEmailNotVerified:
		return MsgEmailNotVerified
	case CodeNotFound:
		return MsgUserNotFound
	case CodeAlreadyVerified:
		return MsgAlreadyVerified
	default:
		return MsgInternal
	}
}

// FieldErrors returns the per-field validation failures carried by err.
func FieldErrors(err error) map[string]string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	fields, _ := oopsErr.Context()["fields"].(map[string]string) //nolint:errcheck // absent fields yield nil
	return fields
}
