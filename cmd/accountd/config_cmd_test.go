// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accountd/internal/config"
	"github.com/holomush/accountd/pkg/errutil"
)

func TestConfigShow_RedactsSecrets(t *testing.T) {
	t.Setenv(config.EnvTokenSecret, "super-secret-signing-key")
	t.Setenv(config.EnvDatabaseURL, "postgres://accountd:hunter2@db:5432/accounts")

	out, err := runRoot(t, "config", "show", "--http-addr", ":8080")
	require.NoError(t, err)
	assert.Regexp(t, `http-addr: .?:8080`, out)
	assert.NotContains(t, out, "super-secret-signing-key")
	assert.NotContains(t, out, "hunter2")
}

func TestConfigShow_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accountd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log-level: debug\nmail:\n  transport: kafka\n"), 0o600))

	out, err := runRoot(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "log-level: debug")
	assert.Contains(t, out, "transport: kafka")
}

func TestConfigSchema_IsJSON(t *testing.T) {
	out, err := runRoot(t, "config", "schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Equal(t, config.SchemaID, schema["$id"])
}

func TestConfigValidate(t *testing.T) {
	t.Setenv(config.EnvDatabaseURL, "postgres://u:p@db/accounts")
	t.Setenv(config.EnvTokenSecret, "")

	_, err := runRoot(t, "config", "validate")
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	errutil.AssertErrorContext(t, err, "key", "token.secret")

	t.Setenv(config.EnvTokenSecret, "0123456789abcdef0123")
	out, err := runRoot(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "configuration is valid")
}

func TestConfigShow_FindsXDGConfigFile(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "accountd"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(base, "accountd", "config.yaml"), []byte("log-format: text\n"), 0o600))

	out, err := runRoot(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "log-format: text")
}
