// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import "github.com/google/uuid"

// VerificationTokenGenerator produces single-use email verification tokens.
type VerificationTokenGenerator interface {
	Generate() string
}

// UUIDTokenGenerator generates random (version 4) UUID tokens.
type UUIDTokenGenerator struct{}

// Generate returns a new random UUID string.
func (UUIDTokenGenerator) Generate() string {
	return uuid.NewString()
}
