// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/accountd/pkg/errutil"
)

// MailSender delivers verification emails. MailDispatcher implements it.
type MailSender interface {
	// Dispatch sends in the background; failures never reach the caller.
	Dispatch(msg VerificationEmail)
	// Send waits for the transport and returns its (already logged) error.
	Send(ctx context.Context, msg VerificationEmail) error
}

// ServiceDeps are the collaborators of Service and VerificationService.
type ServiceDeps struct {
	Users              UserRepository
	Hasher             PasswordHasher
	Tokens             TokenIssuer
	VerificationTokens VerificationTokenGenerator
	Validator          *Validator
	Mail               MailSender
	Avatars            AvatarStore
	// PublicBaseURL prefixes verification links.
	PublicBaseURL string
	Logger        *slog.Logger
	Recorder      Recorder
}

func (d *ServiceDeps) validate() error {
	switch {
	case d.Users == nil:
		return oops.Errorf("user repository is required")
	case d.Hasher == nil:
		return oops.Errorf("password hasher is required")
	case d.Tokens == nil:
		return oops.Errorf("token issuer is required")
	case d.VerificationTokens == nil:
		return oops.Errorf("verification token generator is required")
	case d.Validator == nil:
		return oops.Errorf("validator is required")
	case d.Mail == nil:
		return oops.Errorf("mail sender is required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Recorder == nil {
		d.Recorder = NopRecorder{}
	}
	return nil
}

// Service provides signup, login, session and profile operations.
type Service struct {
	deps ServiceDeps
}

// NewService creates a new Service.
func NewService(deps ServiceDeps) (*Service, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Avatars == nil {
		return nil, oops.Errorf("avatar store is required")
	}
	return &Service{deps: deps}, nil
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string   `json:"token"`
	User  *Summary `json:"user"`
}

// dummyPasswordHash is verified when the email is unknown so that both
// failure paths cost one hash computation. It matches no password.
//
//nolint:gosec // G101: intentionally fake hash, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Signup registers a new unverified account and sends its verification email.
func (s *Service) Signup(ctx context.Context, in SignupInput) (summary *Summary, err error) {
	defer func() { s.deps.Recorder.RecordSignup(ResultOf(err)) }()

	if err := s.deps.Validator.ValidateSignup(in); err != nil {
		return nil, err
	}

	existing, err := s.deps.Users.FindByFirstNameOrEmail(ctx, in.FirstName, in.Email)
	if err != nil {
		return nil, oops.Code("SIGNUP_FAILED").
			With("operation", "find existing user").
			Wrap(err)
	}
	if conflict := signupConflict(existing, in); conflict != nil {
		return nil, conflict
	}

	hash, err := s.deps.Hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("SIGNUP_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(in.FirstName, in.Email, hash, GravatarURL(in.Email), s.deps.VerificationTokens.Generate())
	if err != nil {
		return nil, oops.Code("SIGNUP_FAILED").
			With("operation", "build user").
			Wrap(err)
	}

	if err := s.deps.Users.Create(ctx, user); err != nil {
		// Lost a race with a concurrent signup for the same email.
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrConflict("email", MsgEmailInUse)
		}
		return nil, oops.Code("SIGNUP_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	s.deps.Mail.Dispatch(s.verificationEmail(user))

	s.deps.Logger.InfoContext(ctx, "account created", "user_id", user.ID.String())
	return user.Summary(), nil
}

// signupConflict returns the conflict error for the first colliding field,
// preferring a first name collision over an email collision.
func signupConflict(existing []*User, in SignupInput) error {
	if len(existing) == 0 {
		return nil
	}
	if in.FirstName != "" {
		for _, u := range existing {
			if u.FirstName == in.FirstName {
				return ErrConflict("firstName", MsgFirstNameInUse)
			}
		}
	}
	return ErrConflict("email", MsgEmailInUse)
}

// Login authenticates by email and password and issues a new session token,
// replacing any previous one.
func (s *Service) Login(ctx context.Context, in LoginInput) (result *LoginResult, err error) {
	defer func() { s.deps.Recorder.RecordLogin(ResultOf(err)) }()

	if err := s.deps.Validator.ValidateLogin(in); err != nil {
		return nil, err
	}

	user, lookupErr := s.deps.Users.GetByEmail(ctx, in.Email)

	targetHash := dummyPasswordHash
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("LOGIN_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
		user = nil
	} else {
		targetHash = user.PasswordHash
	}

	// Always verify so unknown emails and wrong passwords take the same time.
	valid := s.deps.Hasher.Verify(in.Password, targetHash)
	if user == nil || !valid {
		return nil, ErrUnauthorized(MsgBadCredentials)
	}

	if !user.Verified {
		return nil, ErrEmailNotVerified()
	}

	if s.deps.Hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradePassword(ctx, user.ID, in.Password)
	}

	token, err := s.deps.Tokens.Issue(user.ID)
	if err != nil {
		return nil, oops.Code("LOGIN_FAILED").
			With("operation", "issue token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	if err := s.deps.Users.SetSessionToken(ctx, user.ID, token); err != nil {
		return nil, oops.Code("LOGIN_FAILED").
			With("operation", "store session token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	return &LoginResult{Token: token, User: user.Summary()}, nil
}

// upgradePassword rehashes a legacy password hash. Login succeeds regardless.
func (s *Service) upgradePassword(ctx context.Context, id ulid.ULID, password string) {
	hash, err := s.deps.Hasher.Hash(password)
	if err == nil {
		err = s.deps.Users.UpdatePassword(ctx, id, hash)
	}
	if err != nil {
		errutil.LogError(s.deps.Logger, "password hash upgrade failed",
			oops.With("user_id", id.String()).Wrap(err))
	}
}

// Authenticate resolves a bearer token to its user. The token must verify
// and must equal the session token currently stored for that user.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	id, err := s.deps.Tokens.Verify(token)
	if err != nil {
		return nil, ErrUnauthorized(MsgNotAuthorized)
	}

	user, err := s.deps.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthorized(MsgNotAuthorized)
		}
		return nil, oops.Code("AUTHENTICATE_FAILED").
			With("operation", "get user by id").
			With("user_id", id.String()).
			Wrap(err)
	}

	if !user.HasSession() || subtle.ConstantTimeCompare([]byte(*user.SessionToken), []byte(token)) != 1 {
		return nil, ErrUnauthorized(MsgNotAuthorized)
	}
	return user, nil
}

// Logout clears the user's session token. Logging out twice succeeds.
func (s *Service) Logout(ctx context.Context, userID ulid.ULID) error {
	if err := s.deps.Users.SetSessionToken(ctx, userID, ""); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnauthorized(MsgNotAuthorized)
		}
		return oops.Code("LOGOUT_FAILED").
			With("operation", "clear session token").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// Current returns the profile of the user.
func (s *Service) Current(ctx context.Context, userID ulid.ULID) (*Profile, error) {
	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthorized(MsgNotAuthorized)
		}
		return nil, oops.Code("CURRENT_FAILED").
			With("operation", "get user by id").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return user.Profile(), nil
}

// UpdateSubscription changes the user's subscription tier.
func (s *Service) UpdateSubscription(ctx context.Context, userID ulid.ULID, in SubscriptionInput) (SubscriptionTier, error) {
	if err := s.deps.Validator.ValidateSubscription(in); err != nil {
		return "", err
	}
	tier := SubscriptionTier(in.Subscription)

	if err := s.deps.Users.UpdateSubscription(ctx, userID, tier); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrUserNotFound()
		}
		return "", oops.Code("SUBSCRIPTION_UPDATE_FAILED").
			With("operation", "update subscription").
			With("user_id", userID.String()).
			With("tier", string(tier)).
			Wrap(err)
	}
	return tier, nil
}

// UpdateAvatar stores an uploaded image and makes it the user's avatar.
func (s *Service) UpdateAvatar(ctx context.Context, userID ulid.ULID, upload AvatarUpload) (string, error) {
	if upload.Content == nil || upload.Filename == "" {
		return "", ErrValidation(MsgMissingFile, map[string]string{"picture": `"picture" is required`})
	}

	if _, err := s.deps.Users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrUserNotFound()
		}
		return "", oops.Code("AVATAR_UPDATE_FAILED").
			With("operation", "get user by id").
			With("user_id", userID.String()).
			Wrap(err)
	}

	name := AvatarFileName(userID, upload.Filename)
	url, err := s.deps.Avatars.Save(ctx, name, upload.ContentType, upload.Content)
	if err != nil {
		return "", oops.Code("AVATAR_UPDATE_FAILED").
			With("operation", "store avatar").
			With("name", name).
			Wrap(err)
	}

	if err := s.deps.Users.UpdateAvatarURL(ctx, userID, url); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrUserNotFound()
		}
		return "", oops.Code("AVATAR_UPDATE_FAILED").
			With("operation", "update avatar url").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return url, nil
}

func (s *Service) verificationEmail(user *User) VerificationEmail {
	var token string
	if user.VerificationToken != nil {
		token = *user.VerificationToken
	}
	return VerificationEmail{
		To:        user.Email,
		FirstName: user.FirstName,
		Token:     token,
		Link:      VerificationLink(s.deps.PublicBaseURL, token),
	}
}
