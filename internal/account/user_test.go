// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accountd/internal/account"
)

func TestNewUser(t *testing.T) {
	t.Run("starts unverified on the starter tier", func(t *testing.T) {
		u, err := account.NewUser("Ann", "ann@example.com", "hash", "avatar", "tok")
		require.NoError(t, err)
		assert.False(t, u.ID.IsZero())
		assert.Equal(t, account.TierStarter, u.Subscription)
		assert.False(t, u.Verified)
		require.NotNil(t, u.VerificationToken)
		assert.Equal(t, "tok", *u.VerificationToken)
		assert.False(t, u.HasSession())
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		_, err := account.NewUser("", "", "hash", "", "tok")
		assert.Error(t, err)
		_, err = account.NewUser("", "a@b.co", "", "", "tok")
		assert.Error(t, err)
		_, err = account.NewUser("", "a@b.co", "hash", "", "")
		assert.Error(t, err)
	})
}

func TestUser_ViewsOmitSecrets(t *testing.T) {
	token := "session"
	u := &account.User{
		Email:        "ann@example.com",
		PasswordHash: "hash",
		Subscription: account.TierBusiness,
		SessionToken: &token,
		AvatarURL:    "avatars/a.png",
	}
	assert.Equal(t, &account.Summary{Email: "ann@example.com", Subscription: account.TierBusiness}, u.Summary())
	assert.Equal(t, &account.Profile{Email: "ann@example.com", Subscription: account.TierBusiness, AvatarURL: "avatars/a.png"}, u.Profile())
}

func TestSubscriptionTier_Valid(t *testing.T) {
	for _, tier := range account.Tiers() {
		assert.True(t, tier.Valid())
	}
	assert.False(t, account.SubscriptionTier("gold").Valid())
	assert.False(t, account.SubscriptionTier("").Valid())
}

func TestPublicMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain error", errors.New("db exploded"), account.MsgInternal},
		{"internal oops error", oops.Code("SIGNUP_FAILED").Errorf("db exploded"), account.MsgInternal},
		{"conflict", account.ErrConflict("email", account.MsgEmailInUse), account.MsgEmailInUse},
		{"unauthorized default", oops.Code(account.CodeUnauthorized).Errorf("x"), account.MsgNotAuthorized},
		{"expired token", oops.Code(account.CodeTokenExpired).Errorf("x"), account.MsgNotAuthorized},
		{"not verified", account.ErrEmailNotVerified(), account.MsgEmailNotVerified},
		{"not found", account.ErrUserNotFound(), account.MsgUserNotFound},
		{"already verified", account.ErrAlreadyVerified(), account.MsgAlreadyVerified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, account.PublicMessage(tt.err))
		})
	}
}

func TestResultOf(t *testing.T) {
	assert.Equal(t, account.ResultSuccess, account.ResultOf(nil))
	assert.Equal(t, "account_conflict", account.ResultOf(account.ErrConflict("email", account.MsgEmailInUse)))
	assert.Equal(t, account.ResultError, account.ResultOf(oops.Code("USER_CREATE_FAILED").Errorf("x")))
	assert.Equal(t, account.ResultError, account.ResultOf(errors.New("x")))
}

func TestAvatarFileName(t *testing.T) {
	id := ulid.Make()
	assert.Equal(t, id.String()+"_me.png", account.AvatarFileName(id, "me.png"))
	assert.Equal(t, id.String()+"_me.png", account.AvatarFileName(id, "../../etc/me.png"))
	assert.Equal(t, id.String()+"_me.png", account.AvatarFileName(id, `C:\Users\me.png`))
	assert.Equal(t, id.String()+"_avatar", account.AvatarFileName(id, ".."))
}

func TestGravatarURL(t *testing.T) {
	// md5("test@example.com")
	want := "https://www.gravatar.com/avatar/55502f40dc8b7c769880b10874abc9d0?s=250&r=pg&d=mp"
	assert.Equal(t, want, account.GravatarURL(" Test@Example.com "))
}

func TestUUIDTokenGenerator(t *testing.T) {
	var gen account.UUIDTokenGenerator
	a, b := gen.Generate(), gen.Generate()

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
	assert.NotEqual(t, a, b)
}
