// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/accountd/internal/account"
	"github.com/holomush/accountd/internal/account/postgres"
	"github.com/holomush/accountd/internal/store"
)

var _ = Describe("UserRepository", Ordered, func() {
	var (
		ctx       context.Context
		container *tcpostgres.PostgresContainer
		pool      *pgxpool.Pool
		repo      *postgres.UserRepository
	)

	BeforeAll(func() {
		ctx = context.Background()

		var err error
		container, err = tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("accountd_test"),
			tcpostgres.WithUsername("accountd"),
			tcpostgres.WithPassword("accountd"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err := container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Close()).To(Succeed())

		pool, err = store.NewPool(ctx, connStr, store.PoolOptions{})
		Expect(err).NotTo(HaveOccurred())
		repo = postgres.NewUserRepository(pool)
	})

	AfterAll(func() {
		if pool != nil {
			pool.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	newUser := func(firstName, email, token string) *account.User {
		user, err := account.NewUser(firstName, email, "hash", "https://www.gravatar.com/avatar/x", token)
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.Create(ctx, user)).To(Succeed())
		return user
	}

	It("round-trips a created user", func() {
		created := newUser("Ann", "ann@example.com", "tok-ann")

		got, err := repo.GetByEmail(ctx, "ann@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(created.ID))
		Expect(got.FirstName).To(Equal("Ann"))
		Expect(got.Subscription).To(Equal(account.TierStarter))
		Expect(got.Verified).To(BeFalse())
		Expect(got.VerificationToken).NotTo(BeNil())
		Expect(*got.VerificationToken).To(Equal("tok-ann"))
	})

	It("rejects a duplicate email", func() {
		user, err := account.NewUser("", "ann@example.com", "hash", "", "tok-dup")
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.Create(ctx, user)).To(MatchError(account.ErrDuplicate))
	})

	It("allows several users without a first name", func() {
		newUser("", "nameless1@example.com", "tok-n1")
		newUser("", "nameless2@example.com", "tok-n2")
	})

	It("orders first name collisions first", func() {
		newUser("Bob", "bob@example.com", "tok-bob")

		users, err := repo.FindByFirstNameOrEmail(ctx, "Bob", "ann@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(users).To(HaveLen(2))
		Expect(users[0].FirstName).To(Equal("Bob"))
		Expect(users[1].Email).To(Equal("ann@example.com"))

		users, err = repo.FindByFirstNameOrEmail(ctx, "", "nobody@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(users).To(BeEmpty())
	})

	It("consumes a verification token once", func() {
		user, err := repo.MarkVerified(ctx, "tok-ann")
		Expect(err).NotTo(HaveOccurred())
		Expect(user.Verified).To(BeTrue())
		Expect(user.VerificationToken).To(BeNil())

		_, err = repo.MarkVerified(ctx, "tok-ann")
		Expect(err).To(MatchError(account.ErrNotFound))
	})

	It("sets and clears the session token", func() {
		user, err := repo.GetByEmail(ctx, "ann@example.com")
		Expect(err).NotTo(HaveOccurred())

		Expect(repo.SetSessionToken(ctx, user.ID, "jwt")).To(Succeed())
		got, err := repo.GetByID(ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.HasSession()).To(BeTrue())

		Expect(repo.SetSessionToken(ctx, user.ID, "")).To(Succeed())
		got, err = repo.GetByID(ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.SessionToken).To(BeNil())
	})

	It("updates subscription, avatar and password", func() {
		user, err := repo.GetByEmail(ctx, "ann@example.com")
		Expect(err).NotTo(HaveOccurred())

		Expect(repo.UpdateSubscription(ctx, user.ID, account.TierBusiness)).To(Succeed())
		Expect(repo.UpdateAvatarURL(ctx, user.ID, "avatars/x_ann.png")).To(Succeed())
		Expect(repo.UpdatePassword(ctx, user.ID, "new-hash")).To(Succeed())

		got, err := repo.GetByID(ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Subscription).To(Equal(account.TierBusiness))
		Expect(got.AvatarURL).To(Equal("avatars/x_ann.png"))
		Expect(got.PasswordHash).To(Equal("new-hash"))
		Expect(got.UpdatedAt).To(BeTemporally(">=", got.CreatedAt))
	})

	It("reports unknown users as not found", func() {
		_, err := repo.GetByID(ctx, ulid.Make())
		Expect(err).To(MatchError(account.ErrNotFound))
		Expect(repo.UpdateSubscription(ctx, ulid.Make(), account.TierPro)).To(MatchError(account.ErrNotFound))
	})
})
