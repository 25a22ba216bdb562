// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package accounttest provides in-memory implementations of account
// collaborators for tests.
package accounttest

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/accountd/internal/account"
)

// UserRepository is an in-memory account.UserRepository.
type UserRepository struct {
	mu    sync.Mutex
	users map[ulid.ULID]*account.User
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[ulid.ULID]*account.User)}
}

var _ account.UserRepository = (*UserRepository)(nil)

// Create stores a copy of user.
func (r *UserRepository) Create(_ context.Context, user *account.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return oops.With("email", user.Email).Wrap(account.ErrDuplicate)
		}
		if u.VerificationToken != nil && user.VerificationToken != nil && *u.VerificationToken == *user.VerificationToken {
			return oops.With("field", "verification_token").Wrap(account.ErrDuplicate)
		}
	}
	r.users[user.ID] = clone(user)
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id ulid.ULID) (*account.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, oops.With("id", id.String()).Wrap(account.ErrNotFound)
	}
	return clone(u), nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*account.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, oops.With("email", email).Wrap(account.ErrNotFound)
}

// FindByFirstNameOrEmail returns first name matches followed by email matches.
func (r *UserRepository) FindByFirstNameOrEmail(_ context.Context, firstName, email string) ([]*account.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var byName, byEmail []*account.User
	for _, u := range r.users {
		switch {
		case firstName != "" && u.FirstName == firstName:
			byName = append(byName, clone(u))
		case u.Email == email:
			byEmail = append(byEmail, clone(u))
		}
	}
	return append(byName, byEmail...), nil
}

// SetSessionToken replaces or clears the session token.
func (r *UserRepository) SetSessionToken(_ context.Context, id ulid.ULID, token string) error {
	return r.update(id, func(u *account.User) {
		if token == "" {
			u.SessionToken = nil
			return
		}
		u.SessionToken = &token
	})
}

// UpdatePassword replaces the password hash.
func (r *UserRepository) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	return r.update(id, func(u *account.User) { u.PasswordHash = passwordHash })
}

// MarkVerified consumes token.
func (r *UserRepository) MarkVerified(_ context.Context, token string) (*account.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if !u.Verified && u.VerificationToken != nil && *u.VerificationToken == token {
			u.Verified = true
			u.VerificationToken = nil
			u.UpdatedAt = time.Now().UTC()
			return clone(u), nil
		}
	}
	return nil, oops.With("token", token).Wrap(account.ErrNotFound)
}

// UpdateSubscription sets the tier.
func (r *UserRepository) UpdateSubscription(_ context.Context, id ulid.ULID, tier account.SubscriptionTier) error {
	return r.update(id, func(u *account.User) { u.Subscription = tier })
}

// UpdateAvatarURL sets the avatar URL.
func (r *UserRepository) UpdateAvatarURL(_ context.Context, id ulid.ULID, avatarURL string) error {
	return r.update(id, func(u *account.User) { u.AvatarURL = avatarURL })
}

// Len returns the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *UserRepository) update(id ulid.ULID, fn func(*account.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return oops.With("id", id.String()).Wrap(account.ErrNotFound)
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func clone(u *account.User) *account.User {
	c := *u
	if u.SessionToken != nil {
		t := *u.SessionToken
		c.SessionToken = &t
	}
	if u.VerificationToken != nil {
		t := *u.VerificationToken
		c.VerificationToken = &t
	}
	return &c
}

// Mailer records verification emails instead of sending them.
type Mailer struct {
	mu   sync.Mutex
	sent []account.VerificationEmail
	// Err, when set, is returned by every send.
	Err error
}

// SendVerification records msg.
func (m *Mailer) SendVerification(_ context.Context, msg account.VerificationEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns the recorded emails.
func (m *Mailer) Sent() []account.VerificationEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]account.VerificationEmail(nil), m.sent...)
}

// AvatarStore keeps uploaded avatars in memory.
type AvatarStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// Save records content under name and returns "avatars/<name>".
func (s *AvatarStore) Save(_ context.Context, name, _ string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", oops.Wrap(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[name] = data
	return "avatars/" + name, nil
}

// Object returns the stored bytes for name.
func (s *AvatarStore) Object(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[name]
	return data, ok
}
