// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package account implements user accounts: signup, login, session tokens,
// email verification, subscription tiers and avatars.
//
// # Domain Types
//
// Users should be created with NewUser, which assigns the ID, the default
// tier and the verification token. Repositories receive users built this way.
//
// # Services
//
//   - Service - signup, login, logout, current user, subscription and avatar updates
//   - VerificationService - email verification and verification resend
//
// Both are created from a ServiceDeps value and reject missing collaborators.
//
// # Errors
//
// Client-visible failures carry one of the Code* oops codes. PublicMessage
// turns an error into the message that may be shown to a client; anything
// without a client code is an internal fault.
package account
