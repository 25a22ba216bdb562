// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import "strings"

// Result labels passed to a Recorder.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Recorder receives account events for metrics.
type Recorder interface {
	RecordSignup(result string)
	RecordLogin(result string)
	RecordVerification(result string)
	RecordVerificationEmail(result string)
}

// NopRecorder discards every event.
type NopRecorder struct{}

func (NopRecorder) RecordSignup(string)            {}
func (NopRecorder) RecordLogin(string)             {}
func (NopRecorder) RecordVerification(string)      {}
func (NopRecorder) RecordVerificationEmail(string) {}

// ResultOf returns the result label for err: "success", the lowercased
// client error code, or "error" for internal failures.
func ResultOf(err error) string {
	if err == nil {
		return ResultSuccess
	}
	switch code := ErrorCode(err); code {
	case CodeValidation, CodeAlreadyVerified, CodeConflict, CodeUnauthorized,
		CodeTokenInvalid, CodeTokenExpired, CodeEmailNotVerified, CodeNotFound:
		return strings.ToLower(code)
	default:
		return ResultError
	}
}
