// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"context"
	"crypto/md5" //nolint:gosec // gravatar addresses images by md5 of the email
	"encoding/hex"
	"io"
	"path"
	"strings"

	"github.com/oklog/ulid/v2"
)

// gravatarBase serves the default avatar for new accounts.
const gravatarBase = "https://www.gravatar.com/avatar/"

// AvatarStore persists uploaded avatar images.
type AvatarStore interface {
	// Save stores the image under name and returns the URL it is reachable at.
	Save(ctx context.Context, name, contentType string, content io.Reader) (string, error)
}

// AvatarUpload is an image received from a client.
type AvatarUpload struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// GravatarURL returns the gravatar URL for email (250px, pg rating, mystery-person fallback).
func GravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email)))) //nolint:gosec // not used for security
	return gravatarBase + hex.EncodeToString(sum[:]) + "?s=250&r=pg&d=mp"
}

// AvatarFileName returns the stored name for an upload: "<userID>_<basename>".
// Directory components and path separators in the client filename are dropped.
func AvatarFileName(userID ulid.ULID, original string) string {
	base := path.Base(strings.ReplaceAll(original, "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		base = "avatar"
	}
	return userID.String() + "_" + base
}
