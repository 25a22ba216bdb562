// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mocks provides testify mocks of the account collaborators.
package mocks

import (
	"context"
	"io"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/holomush/accountd/internal/account"
)

// TestingT is the subset of *testing.T the constructors need.
type TestingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserRepository is a mock of account.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a mock that asserts its expectations on cleanup.
func NewMockUserRepository(t TestingT) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ account.UserRepository = (*MockUserRepository)(nil)

func (m *MockUserRepository) Create(ctx context.Context, user *account.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id ulid.ULID) (*account.User, error) {
	ret := m.Called(ctx, id)
	return userOrNil(ret, 0), ret.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*account.User, error) {
	ret := m.Called(ctx, email)
	return userOrNil(ret, 0), ret.Error(1)
}

func (m *MockUserRepository) FindByFirstNameOrEmail(ctx context.Context, firstName, email string) ([]*account.User, error) {
	ret := m.Called(ctx, firstName, email)
	var users []*account.User
	if v := ret.Get(0); v != nil {
		users = v.([]*account.User) //nolint:errcheck,forcetypeassert // mock contract
	}
	return users, ret.Error(1)
}

func (m *MockUserRepository) SetSessionToken(ctx context.Context, id ulid.ULID, token string) error {
	return m.Called(ctx, id, token).Error(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *MockUserRepository) MarkVerified(ctx context.Context, token string) (*account.User, error) {
	ret := m.Called(ctx, token)
	return userOrNil(ret, 0), ret.Error(1)
}

func (m *MockUserRepository) UpdateSubscription(ctx context.Context, id ulid.ULID, tier account.SubscriptionTier) error {
	return m.Called(ctx, id, tier).Error(0)
}

func (m *MockUserRepository) UpdateAvatarURL(ctx context.Context, id ulid.ULID, avatarURL string) error {
	return m.Called(ctx, id, avatarURL).Error(0)
}

func userOrNil(ret mock.Arguments, i int) *account.User {
	if v := ret.Get(i); v != nil {
		return v.(*account.User) //nolint:errcheck,forcetypeassert // mock contract
	}
	return nil
}

// MockPasswordHasher is a mock of account.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t TestingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ account.PasswordHasher = (*MockPasswordHasher)(nil)

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	ret := m.Called(password)
	return ret.String(0), ret.Error(1)
}

func (m *MockPasswordHasher) Verify(password, hash string) bool {
	return m.Called(password, hash).Bool(0)
}

func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	return m.Called(hash).Bool(0)
}

// MockTokenIssuer is a mock of account.TokenIssuer.
type MockTokenIssuer struct {
	mock.Mock
}

// NewMockTokenIssuer creates a mock that asserts its expectations on cleanup.
func NewMockTokenIssuer(t TestingT) *MockTokenIssuer {
	m := &MockTokenIssuer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ account.TokenIssuer = (*MockTokenIssuer)(nil)

func (m *MockTokenIssuer) Issue(userID ulid.ULID) (string, error) {
	ret := m.Called(userID)
	return ret.String(0), ret.Error(1)
}

func (m *MockTokenIssuer) Verify(token string) (ulid.ULID, error) {
	ret := m.Called(token)
	return ret.Get(0).(ulid.ULID), ret.Error(1) //nolint:errcheck,forcetypeassert // mock contract
}

// MockVerificationTokenGenerator is a mock of account.VerificationTokenGenerator.
type MockVerificationTokenGenerator struct {
	mock.Mock
}

// NewMockVerificationTokenGenerator creates a mock that asserts its expectations on cleanup.
func NewMockVerificationTokenGenerator(t TestingT) *MockVerificationTokenGenerator {
	m := &MockVerificationTokenGenerator{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockVerificationTokenGenerator) Generate() string {
	return m.Called().String(0)
}

// MockMailSender is a mock of account.MailSender.
type MockMailSender struct {
	mock.Mock
}

// NewMockMailSender creates a mock that asserts its expectations on cleanup.
func NewMockMailSender(t TestingT) *MockMailSender {
	m := &MockMailSender{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ account.MailSender = (*MockMailSender)(nil)

func (m *MockMailSender) Dispatch(msg account.VerificationEmail) {
	m.Called(msg)
}

func (m *MockMailSender) Send(ctx context.Context, msg account.VerificationEmail) error {
	return m.Called(ctx, msg).Error(0)
}

// MockAvatarStore is a mock of account.AvatarStore.
type MockAvatarStore struct {
	mock.Mock
}

// NewMockAvatarStore creates a mock that asserts its expectations on cleanup.
func NewMockAvatarStore(t TestingT) *MockAvatarStore {
	m := &MockAvatarStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ account.AvatarStore = (*MockAvatarStore)(nil)

func (m *MockAvatarStore) Save(ctx context.Context, name, contentType string, content io.Reader) (string, error) {
	ret := m.Called(ctx, name, contentType, content)
	return ret.String(0), ret.Error(1)
}
