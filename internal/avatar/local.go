// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package avatar provides account.AvatarStore backends.
package avatar

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/accountd/internal/account"
)

// URLPrefix is the path local avatars are served under.
const URLPrefix = "avatars"

// LocalStore writes avatars into a directory served by the HTTP API.
type LocalStore struct {
	dir string
}

var _ account.AvatarStore = (*LocalStore)(nil)

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, oops.Code("AVATAR_DIR_INVALID").Errorf("avatar directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, oops.Code("AVATAR_DIR_INVALID").With("dir", dir).Wrap(err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir returns the directory avatars are written to.
func (s *LocalStore) Dir() string { return s.dir }

// Save writes content to <dir>/<name> via a temporary file and returns
// "avatars/<name>". An existing file with the same name is replaced.
func (s *LocalStore) Save(ctx context.Context, name, _ string, content io.Reader) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", oops.Code("AVATAR_NAME_INVALID").With("name", name).Errorf("invalid avatar name")
	}
	if err := ctx.Err(); err != nil {
		return "", oops.Code("AVATAR_SAVE_FAILED").Wrap(err)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", oops.Code("AVATAR_SAVE_FAILED").With("dir", s.dir).Wrap(err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := io.Copy(tmp, content); err != nil {
		_ = tmp.Close()
		return "", oops.Code("AVATAR_SAVE_FAILED").With("name", name).Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return "", oops.Code("AVATAR_SAVE_FAILED").With("name", name).Wrap(err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return "", oops.Code("AVATAR_SAVE_FAILED").With("name", name).Wrap(err)
	}
	return URLPrefix + "/" + name, nil
}
