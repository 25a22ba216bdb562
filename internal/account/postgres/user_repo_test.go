// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accountd/internal/account"
	"github.com/holomush/accountd/internal/account/postgres"
	"github.com/holomush/accountd/pkg/errutil"
)

var columns = []string{
	"id", "first_name", "email", "password_hash", "subscription",
	"session_token", "avatar_url", "verified", "verification_token", "created_at", "updated_at",
}

func strPtr(s string) *string { return &s }

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func userRow(rows *pgxmock.Rows, id ulid.ULID, firstName *string, email string, verified bool, token *string) *pgxmock.Rows {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return rows.AddRow(
		id.String(), firstName, email, "hash", "pro",
		(*string)(nil), "avatars/a.png", verified, token, now, now,
	)
}

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *postgres.UserRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		mock.Close()
	})
	return mock, postgres.NewUserRepository(mock)
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()
	user, err := account.NewUser("Ann", "ann@example.com", "hash", "avatar", "tok")
	require.NoError(t, err)

	t.Run("inserts the user", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID.String(), pgxmock.AnyArg(), "ann@example.com", "hash", "starter",
				pgxmock.AnyArg(), "avatar", false, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Create(ctx, user))
	})

	t.Run("unique violation is a duplicate", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(anyArgs(11)...).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})

		err := repo.Create(ctx, user)
		require.Error(t, err)
		assert.ErrorIs(t, err, account.ErrDuplicate)
		errutil.AssertErrorCode(t, err, "USER_DUPLICATE")
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(anyArgs(11)...).
			WillReturnError(errors.New("connection refused"))

		err := repo.Create(ctx, user)
		errutil.AssertErrorCode(t, err, "USER_CREATE_FAILED")
		errutil.AssertErrorContext(t, err, "operation", "insert user")
		assert.NotErrorIs(t, err, account.ErrDuplicate)
	})
}

func TestUserRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("found", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnRows(userRow(mock.NewRows(columns), id, strPtr("Ann"), "ann@example.com", true, nil))

		user, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)
		assert.Equal(t, "Ann", user.FirstName)
		assert.Equal(t, account.TierPro, user.Subscription)
		assert.True(t, user.Verified)
		assert.Nil(t, user.VerificationToken)
		assert.Nil(t, user.SessionToken)
	})

	t.Run("missing maps to ErrNotFound", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnRows(mock.NewRows(columns))

		_, err := repo.GetByID(ctx, id)
		assert.ErrorIs(t, err, account.ErrNotFound)
	})

	t.Run("corrupt id is reported", func(t *testing.T) {
		mock, repo := newMock(t)
		now := time.Now()
		mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnRows(mock.NewRows(columns).AddRow(
				"not-a-ulid", (*string)(nil), "a@b.co", "h", "starter",
				(*string)(nil), "", false, strPtr("t"), now, now))

		_, err := repo.GetByID(ctx, id)
		errutil.AssertErrorCode(t, err, "USER_INVALID_ID")
		errutil.AssertErrorContext(t, err, "operation", "get user by id")
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	ctx := context.Background()
	mock, repo := newMock(t)
	id := ulid.Make()

	mock.ExpectQuery(`SELECT .* FROM users WHERE email = \$1`).
		WithArgs("ann@example.com").
		WillReturnRows(userRow(mock.NewRows(columns), id, nil, "ann@example.com", false, strPtr("tok")))
	mock.ExpectQuery(`SELECT .* FROM users WHERE email = \$1`).
		WithArgs("ghost@example.com").
		WillReturnRows(mock.NewRows(columns))

	user, err := repo.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Empty(t, user.FirstName)
	require.NotNil(t, user.VerificationToken)
	assert.Equal(t, "tok", *user.VerificationToken)

	_, err = repo.GetByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestUserRepository_FindByFirstNameOrEmail(t *testing.T) {
	ctx := context.Background()
	mock, repo := newMock(t)
	byName, byEmail := ulid.Make(), ulid.Make()

	rows := mock.NewRows(columns)
	userRow(rows, byName, strPtr("Ann"), "other@example.com", true, nil)
	userRow(rows, byEmail, strPtr("Bob"), "ann@example.com", true, nil)
	mock.ExpectQuery(`SELECT .* FROM users\s+WHERE \(\$1 <> '' AND first_name = \$1\) OR email = \$2`).
		WithArgs("Ann", "ann@example.com").
		WillReturnRows(rows)

	users, err := repo.FindByFirstNameOrEmail(ctx, "Ann", "ann@example.com")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, byName, users[0].ID)
	assert.Equal(t, byEmail, users[1].ID)
}

func TestUserRepository_Updates(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	tests := []struct {
		name  string
		query string
		args  []any
		call  func(*postgres.UserRepository) error
	}{
		{
			name:  "set session token",
			query: `UPDATE users SET session_token = \$2`,
			args:  []any{id.String(), pgxmock.AnyArg(), pgxmock.AnyArg()},
			call:  func(r *postgres.UserRepository) error { return r.SetSessionToken(ctx, id, "jwt") },
		},
		{
			name:  "clear session token",
			query: `UPDATE users SET session_token = \$2`,
			args:  []any{id.String(), pgxmock.AnyArg(), pgxmock.AnyArg()},
			call:  func(r *postgres.UserRepository) error { return r.SetSessionToken(ctx, id, "") },
		},
		{
			name:  "update password",
			query: `UPDATE users SET password_hash = \$2`,
			args:  []any{id.String(), "new-hash", pgxmock.AnyArg()},
			call:  func(r *postgres.UserRepository) error { return r.UpdatePassword(ctx, id, "new-hash") },
		},
		{
			name:  "update subscription",
			query: `UPDATE users SET subscription = \$2`,
			args:  []any{id.String(), "business", pgxmock.AnyArg()},
			call: func(r *postgres.UserRepository) error {
				return r.UpdateSubscription(ctx, id, account.TierBusiness)
			},
		},
		{
			name:  "update avatar url",
			query: `UPDATE users SET avatar_url = \$2`,
			args:  []any{id.String(), "avatars/x.png", pgxmock.AnyArg()},
			call:  func(r *postgres.UserRepository) error { return r.UpdateAvatarURL(ctx, id, "avatars/x.png") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newMock(t)
			mock.ExpectExec(tt.query).WithArgs(tt.args...).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			require.NoError(t, tt.call(repo))
		})

		t.Run(tt.name+" on missing user", func(t *testing.T) {
			mock, repo := newMock(t)
			mock.ExpectExec(tt.query).WithArgs(tt.args...).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			assert.ErrorIs(t, tt.call(repo), account.ErrNotFound)
		})
	}
}

func TestUserRepository_MarkVerified(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("consumes the token", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectQuery(`UPDATE users\s+SET verified = TRUE, verification_token = NULL`).
			WithArgs("tok", pgxmock.AnyArg()).
			WillReturnRows(userRow(mock.NewRows(columns), id, nil, "ann@example.com", true, nil))

		user, err := repo.MarkVerified(ctx, "tok")
		require.NoError(t, err)
		assert.True(t, user.Verified)
		assert.Nil(t, user.VerificationToken)
	})

	t.Run("unknown or consumed token is not found", func(t *testing.T) {
		mock, repo := newMock(t)
		mock.ExpectQuery(`UPDATE users\s+SET verified = TRUE`).
			WithArgs("tok", pgxmock.AnyArg()).
			WillReturnRows(mock.NewRows(columns))

		_, err := repo.MarkVerified(ctx, "tok")
		assert.ErrorIs(t, err, account.ErrNotFound)
	})
}
