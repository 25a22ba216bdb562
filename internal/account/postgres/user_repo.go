// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements account persistence on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/accountd/internal/account"
	"github.com/holomush/accountd/internal/store"
)

const userColumns = `id, first_name, email, password_hash, subscription,
	session_token, avatar_url, verified, verification_token, created_at, updated_at`

// UserRepository implements account.UserRepository using PostgreSQL.
type UserRepository struct {
	db store.Querier
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db store.Querier) *UserRepository {
	return &UserRepository{db: db}
}

var _ account.UserRepository = (*UserRepository)(nil)

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *account.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		user.ID.String(),
		nullable(user.FirstName),
		user.Email,
		user.PasswordHash,
		string(user.Subscription),
		user.SessionToken,
		user.AvatarURL,
		user.Verified,
		user.VerificationToken,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("USER_DUPLICATE").
				With("email", user.Email).
				Wrap(errors.Join(account.ErrDuplicate, err))
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", user.Email).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*account.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*account.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("email", email).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "get user by email").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// FindByFirstNameOrEmail returns users colliding on first name or email,
// first name matches first.
func (r *UserRepository) FindByFirstNameOrEmail(ctx context.Context, firstName, email string) ([]*account.User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE ($1 <> '' AND first_name = $1) OR email = $2
		ORDER BY CASE WHEN $1 <> '' AND first_name = $1 THEN 0 ELSE 1 END
	`, firstName, email)
	if err != nil {
		return nil, oops.Code("USER_FIND_FAILED").
			With("operation", "find by first name or email").
			Wrap(err)
	}
	defer rows.Close()

	var users []*account.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, oops.Code("USER_FIND_FAILED").
				With("operation", "scan user row").
				Wrap(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_FIND_FAILED").
			With("operation", "iterate users").
			Wrap(err)
	}
	return users, nil
}

// SetSessionToken replaces the session token; "" stores NULL.
func (r *UserRepository) SetSessionToken(ctx context.Context, id ulid.ULID, token string) error {
	return r.execUpdate(ctx, "USER_SET_SESSION_FAILED", id, `
		UPDATE users SET session_token = $2, updated_at = $3 WHERE id = $1
	`, id.String(), nullable(token), time.Now().UTC())
}

// UpdatePassword replaces the password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	return r.execUpdate(ctx, "USER_UPDATE_PASSWORD_FAILED", id, `
		UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1
	`, id.String(), passwordHash, time.Now().UTC())
}

// MarkVerified consumes a verification token in a single statement.
func (r *UserRepository) MarkVerified(ctx context.Context, token string) (*account.User, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE users
		SET verified = TRUE, verification_token = NULL, updated_at = $2
		WHERE verification_token = $1 AND NOT verified
		RETURNING `+userColumns,
		token, time.Now().UTC())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("operation", "mark verified").
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_MARK_VERIFIED_FAILED").
			With("operation", "mark verified").
			Wrap(err)
	}
	return user, nil
}

// UpdateSubscription sets the subscription tier.
func (r *UserRepository) UpdateSubscription(ctx context.Context, id ulid.ULID, tier account.SubscriptionTier) error {
	return r.execUpdate(ctx, "USER_UPDATE_SUBSCRIPTION_FAILED", id, `
		UPDATE users SET subscription = $2, updated_at = $3 WHERE id = $1
	`, id.String(), string(tier), time.Now().UTC())
}

// UpdateAvatarURL sets the avatar URL.
func (r *UserRepository) UpdateAvatarURL(ctx context.Context, id ulid.ULID, avatarURL string) error {
	return r.execUpdate(ctx, "USER_UPDATE_AVATAR_FAILED", id, `
		UPDATE users SET avatar_url = $2, updated_at = $3 WHERE id = $1
	`, id.String(), avatarURL, time.Now().UTC())
}

// execUpdate runs a single-row UPDATE and maps zero affected rows to ErrNotFound.
func (r *UserRepository) execUpdate(ctx context.Context, code string, id ulid.ULID, sql string, args ...any) error {
	result, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return oops.Code(code).
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanUser scans one row. pgx.ErrNoRows is returned unwrapped for callers to map.
func scanUser(row scanner) (*account.User, error) {
	var (
		idStr        string
		firstName    *string
		subscription string
		user         account.User
	)

	err := row.Scan(
		&idStr,
		&firstName,
		&user.Email,
		&user.PasswordHash,
		&subscription,
		&user.SessionToken,
		&user.AvatarURL,
		&user.Verified,
		&user.VerificationToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with lookup context
		}
		return nil, oops.Code("USER_SCAN_FAILED").Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	user.ID = id
	user.Subscription = account.SubscriptionTier(subscription)
	if firstName != nil {
		user.FirstName = *firstName
	}
	return &user, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
