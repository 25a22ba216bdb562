// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package xdg resolves XDG Base Directory paths for accountd.
package xdg

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "accountd"

// ConfigFileName is the config file looked up in ConfigDir.
const ConfigFileName = "config.yaml"

// Getenv looks up an environment variable. os.Getenv satisfies it.
type Getenv func(string) string

// ConfigDir returns the accountd config directory.
// Checks XDG_CONFIG_HOME first, falls back to $HOME/.config.
func ConfigDir(getenv Getenv) (string, error) {
	return baseDir(getenv, "XDG_CONFIG_HOME", ".config")
}

// DataDir returns the accountd data directory.
// Checks XDG_DATA_HOME first, falls back to $HOME/.local/share.
func DataDir(getenv Getenv) (string, error) {
	return baseDir(getenv, "XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func baseDir(getenv Getenv, env, homeRel string) (string, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if base := getenv(env); base != "" {
		return filepath.Join(base, appName), nil
	}
	home := getenv("HOME")
	if home == "" {
		return "", oops.Code("XDG_HOME_UNSET").
			With("env", env).
			Errorf("neither %s nor HOME is set", env)
	}
	return filepath.Join(home, homeRel, appName), nil
}

// DefaultConfigFile returns ConfigDir/config.yaml when that file exists,
// and "" when it does not or no config directory can be resolved.
func DefaultConfigFile(getenv Getenv) (string, error) {
	dir, err := ConfigDir(getenv)
	if err != nil {
		return "", nil //nolint:nilerr // no home directory means no default file
	}
	path := filepath.Join(dir, ConfigFileName)
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", nil
	case err != nil:
		return "", oops.Code("XDG_STAT_FAILED").With("path", path).Wrap(err)
	case info.IsDir():
		return "", oops.Code("XDG_CONFIG_IS_DIR").With("path", path).Errorf("%s is a directory", path)
	}
	return path, nil
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.Code("XDG_MKDIR_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
