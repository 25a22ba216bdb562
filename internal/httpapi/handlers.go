// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/holomush/accountd/internal/account"
)

// Response messages of the verification endpoints.
const (
	MsgVerified         = "Verification successful"
	MsgVerificationSent = "Verification email sent"
)

// AvatarField is the multipart field carrying an avatar upload.
const AvatarField = "picture"

// AccountService is the account surface the API serves. *account.Service implements it.
type AccountService interface {
	Authenticator
	Signup(ctx context.Context, in account.SignupInput) (*account.Summary, error)
	Login(ctx context.Context, in account.LoginInput) (*account.LoginResult, error)
	Logout(ctx context.Context, userID ulid.ULID) error
	Current(ctx context.Context, userID ulid.ULID) (*account.Profile, error)
	UpdateSubscription(ctx context.Context, userID ulid.ULID, in account.SubscriptionInput) (account.SubscriptionTier, error)
	UpdateAvatar(ctx context.Context, userID ulid.ULID, upload account.AvatarUpload) (string, error)
}

// VerificationService is the email verification surface. *account.VerificationService implements it.
type VerificationService interface {
	Verify(ctx context.Context, token string) error
	Reverify(ctx context.Context, in account.ReverifyInput) error
}

type handlers struct {
	accounts       AccountService
	verification   VerificationService
	logger         *slog.Logger
	maxAvatarBytes int64
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	WriteError(w, r, h.logger, err)
}

func (h *handlers) signup(w http.ResponseWriter, r *http.Request) {
	var in account.SignupInput
	if err := decodeJSON(w, r, &in, account.MsgValidation); err != nil {
		h.fail(w, r, err)
		return
	}
	summary, err := h.accounts.Signup(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": summary})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var in account.LoginInput
	if err := decodeJSON(w, r, &in, account.MsgValidation); err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.accounts.Login(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	if err := h.accounts.Logout(r.Context(), user.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) current(w http.ResponseWriter, r *http.Request) {
	noCache(w)
	user, _ := UserFromContext(r.Context())
	profile, err := h.accounts.Current(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *handlers) updateSubscription(w http.ResponseWriter, r *http.Request) {
	var in account.SubscriptionInput
	if err := decodeJSON(w, r, &in, account.MsgInvalidTier); err != nil {
		h.fail(w, r, err)
		return
	}
	user, _ := UserFromContext(r.Context())
	tier, err := h.accounts.UpdateSubscription(r.Context(), user.ID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscription": tier})
}

func (h *handlers) updateAvatar(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	upload, closeFile, err := h.readAvatar(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer closeFile()

	avatarURL, err := h.accounts.UpdateAvatar(r.Context(), user.ID, upload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"avatarURL": avatarURL})
}

// readAvatar extracts the picture part. A missing part yields an upload with
// nil Content so the service reports it.
func (h *handlers) readAvatar(w http.ResponseWriter, r *http.Request) (account.AvatarUpload, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxAvatarBytes)

	file, header, err := r.FormFile(AvatarField)
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return account.AvatarUpload{}, noop, nil
	case err != nil:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return account.AvatarUpload{}, noop, account.ErrValidation(account.MsgValidation,
				map[string]string{AvatarField: "is too large"})
		}
		return account.AvatarUpload{}, noop, account.ErrValidation(account.MsgValidation,
			map[string]string{AvatarField: "must be a multipart file"})
	}
	closeFile := func() { _ = file.Close() }

	contentType, content, err := sniffImage(file)
	if err != nil {
		closeFile()
		return account.AvatarUpload{}, noop, err
	}
	return account.AvatarUpload{
		Filename:    header.Filename,
		ContentType: contentType,
		Content:     content,
	}, closeFile, nil
}

// sniffImage detects the content type from the first bytes and rejects
// anything that is not an image.
func sniffImage(file multipart.File) (string, *bufio.Reader, error) {
	br := bufio.NewReaderSize(file, 512)
	head, err := br.Peek(512)
	if err != nil && len(head) == 0 {
		return "", nil, account.ErrValidation(account.MsgMissingFile, map[string]string{AvatarField: "is empty"})
	}
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		return "", nil, account.ErrValidation(account.MsgValidation, map[string]string{AvatarField: "must be an image"})
	}
	return contentType, br, nil
}

func (h *handlers) verifyEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.verification.Verify(r.Context(), chi.URLParam(r, "verificationToken")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": MsgVerified})
}

func (h *handlers) reverify(w http.ResponseWriter, r *http.Request) {
	var in account.ReverifyInput
	if err := decodeJSON(w, r, &in, account.MsgMissingEmail); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.verification.Reverify(r.Context(), in); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": MsgVerificationSent})
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
