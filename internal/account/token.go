// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultTokenTTL is the lifetime of a session token.
const DefaultTokenTTL = time.Hour

// minSecretLen is the shortest HMAC secret accepted.
const minSecretLen = 16

// TokenIssuer issues and verifies signed session tokens.
type TokenIssuer interface {
	// Issue returns a signed token for the user that expires after the configured TTL.
	Issue(userID ulid.ULID) (string, error)

	// Verify checks signature and expiry and returns the embedded user ID.
	Verify(token string) (ulid.ULID, error)
}

// TokenConfig configures a JWTIssuer.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// sessionClaims is the JWT payload: {id, exp, iat, jti}.
type sessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
}

// JWTIssuer implements TokenIssuer with HS256 JWTs.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTIssuer creates a JWTIssuer.
func NewJWTIssuer(cfg TokenConfig) (*JWTIssuer, error) {
	if len(cfg.Secret) < minSecretLen {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").
			With("min_length", minSecretLen).
			Errorf("token secret must be at least %d bytes", minSecretLen)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &JWTIssuer{secret: cfg.Secret, ttl: ttl, now: now}, nil
}

// Issue signs a token for userID.
func (i *JWTIssuer) Issue(userID ulid.ULID) (string, error) {
	issuedAt := i.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			// jti keeps tokens issued within the same second distinct.
			ID:        ulid.Make().String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(i.ttl)),
		},
		UserID: userID.String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return signed, nil
}

// Verify parses token and returns the user ID it was issued for.
func (i *JWTIssuer) Verify(token string) (ulid.ULID, error) {
	if token == "" {
		return ulid.ULID{}, oops.Code(CodeTokenInvalid).Errorf("token is empty")
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ulid.ULID{}, oops.Code(CodeTokenExpired).Wrap(err)
		}
		return ulid.ULID{}, oops.Code(CodeTokenInvalid).Wrap(err)
	}

	id, err := ulid.Parse(claims.UserID)
	if err != nil {
		return ulid.ULID{}, oops.Code(CodeTokenInvalid).
			With("claim", "id").
			Wrap(err)
	}
	return id, nil
}
