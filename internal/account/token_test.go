// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accountd/internal/account"
	"github.com/holomush/accountd/pkg/errutil"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestNewJWTIssuer(t *testing.T) {
	t.Run("rejects short secret", func(t *testing.T) {
		issuer, err := account.NewJWTIssuer(account.TokenConfig{Secret: []byte("short")})
		require.Error(t, err)
		assert.Nil(t, issuer)
		errutil.AssertErrorCode(t, err, "TOKEN_CONFIG_INVALID")
	})

	t.Run("defaults TTL to one hour", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		clock := now
		issuer, err := account.NewJWTIssuer(account.TokenConfig{
			Secret: testSecret,
			Now:    func() time.Time { return clock },
		})
		require.NoError(t, err)

		token, err := issuer.Issue(ulid.Make())
		require.NoError(t, err)

		clock = now.Add(59 * time.Minute)
		_, err = issuer.Verify(token)
		require.NoError(t, err)

		clock = now.Add(61 * time.Minute)
		_, err = issuer.Verify(token)
		errutil.AssertErrorCode(t, err, account.CodeTokenExpired)
	})
}

func TestJWTIssuer_RoundTrip(t *testing.T) {
	issuer, err := account.NewJWTIssuer(account.TokenConfig{Secret: testSecret, TTL: time.Minute})
	require.NoError(t, err)

	id := ulid.Make()
	token, err := issuer.Issue(id)
	require.NoError(t, err)

	got, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	t.Run("tokens issued back to back differ", func(t *testing.T) {
		second, err := issuer.Issue(id)
		require.NoError(t, err)
		assert.NotEqual(t, token, second)
	})

	t.Run("payload carries id claim", func(t *testing.T) {
		claims := jwt.MapClaims{}
		_, _, err := jwt.NewParser().ParseUnverified(token, claims)
		require.NoError(t, err)
		assert.Equal(t, id.String(), claims["id"])
		assert.Contains(t, claims, "exp")
	})
}

func TestJWTIssuer_VerifyRejects(t *testing.T) {
	issuer, err := account.NewJWTIssuer(account.TokenConfig{Secret: testSecret})
	require.NoError(t, err)
	other, err := account.NewJWTIssuer(account.TokenConfig{Secret: []byte("another-secret-of-enough-length")})
	require.NoError(t, err)

	foreign, err := other.Issue(ulid.Make())
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"id":  ulid.Make().String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "not-a-ulid",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id": ulid.Make().String(),
	}).SignedString(testSecret)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"wrong secret", foreign},
		{"none algorithm", noneAlg},
		{"bad id claim", badSubject},
		{"missing expiry", noExpiry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Verify(tt.token)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, account.CodeTokenInvalid)
		})
	}
}
