// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SubscriptionTier is the plan a user is subscribed to.
type SubscriptionTier string

// Subscription tiers.
const (
	TierStarter  SubscriptionTier = "starter"
	TierPro      SubscriptionTier = "pro"
	TierBusiness SubscriptionTier = "business"
)

// DefaultTier is assigned to new accounts.
const DefaultTier = TierStarter

// Tiers lists every valid subscription tier.
func Tiers() []SubscriptionTier {
	return []SubscriptionTier{TierStarter, TierPro, TierBusiness}
}

// Valid reports whether t is one of the known tiers.
func (t SubscriptionTier) Valid() bool {
	switch t {
	case TierStarter, TierPro, TierBusiness:
		return true
	default:
		return false
	}
}

// User represents an account.
type User struct {
	ID                ulid.ULID
	FirstName         string
	Email             string
	PasswordHash      string
	Subscription      SubscriptionTier
	SessionToken      *string
	AvatarURL         string
	Verified          bool
	VerificationToken *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewUser creates an unverified starter-tier user holding the given verification token.
func NewUser(firstName, email, passwordHash, avatarURL, verificationToken string) (*User, error) {
	if email == "" {
		return nil, oops.Code("USER_INVALID").Errorf("email cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID").Errorf("password hash cannot be empty")
	}
	if verificationToken == "" {
		return nil, oops.Code("USER_INVALID").Errorf("verification token cannot be empty")
	}

	now := time.Now().UTC()
	return &User{
		ID:                ulid.Make(),
		FirstName:         firstName,
		Email:             email,
		PasswordHash:      passwordHash,
		Subscription:      DefaultTier,
		AvatarURL:         avatarURL,
		VerificationToken: &verificationToken,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// HasSession reports whether the user currently holds a session token.
func (u *User) HasSession() bool {
	return u.SessionToken != nil && *u.SessionToken != ""
}

// Summary is the sanitized view returned by signup and login.
type Summary struct {
	Email        string           `json:"email"`
	Subscription SubscriptionTier `json:"subscription"`
}

// Profile is the sanitized view returned for the current user.
type Profile struct {
	Email        string           `json:"email"`
	Subscription SubscriptionTier `json:"subscription"`
	AvatarURL    string           `json:"avatarURL"`
}

// Summary returns the sanitized summary of u.
func (u *User) Summary() *Summary {
	return &Summary{Email: u.Email, Subscription: u.Subscription}
}

// Profile returns the sanitized profile of u.
func (u *User) Profile() *Profile {
	return &Profile{Email: u.Email, Subscription: u.Subscription, AvatarURL: u.AvatarURL}
}

// UserRepository manages user persistence.
//
// Every mutating method is a single atomic update of one user. Lookups return
// an error wrapping ErrNotFound when nothing matches.
type UserRepository interface {
	// Create stores a new user. Returns an error wrapping ErrDuplicate on a unique collision.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by exact email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// FindByFirstNameOrEmail returns any user whose first name equals firstName
	// (when firstName is non-empty) or whose email equals email.
	// Users matching on first name are returned first.
	FindByFirstNameOrEmail(ctx context.Context, firstName, email string) ([]*User, error)

	// SetSessionToken replaces the stored session token. An empty token clears it.
	SetSessionToken(ctx context.Context, id ulid.ULID, token string) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// MarkVerified sets verified and clears the verification token of the user
	// holding token. Returns ErrNotFound if no unverified user holds it.
	MarkVerified(ctx context.Context, token string) (*User, error)

	// UpdateSubscription sets the subscription tier.
	UpdateSubscription(ctx context.Context, id ulid.ULID, tier SubscriptionTier) error

	// UpdateAvatarURL sets the avatar URL.
	UpdateAvatarURL(ctx context.Context, id ulid.ULID, avatarURL string) error
}
