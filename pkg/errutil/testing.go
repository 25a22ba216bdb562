// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import (
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestingT is the subset of testing.TB the assertions need.
type TestingT interface {
	Helper()
	Errorf(format string, args ...any)
	FailNow()
}

// AssertErrorCode asserts that err carries code. The code is read the way
// Code reads it, so wrapping layers without a code of their own are skipped.
func AssertErrorCode(t TestingT, err error, code string) bool {
	t.Helper()
	if !assert.Error(t, err, "expected error with code %s", code) {
		return false
	}
	return assert.Equal(t, code, Code(err), "error: %v", err)
}

// RequireErrorCode is AssertErrorCode that stops the test on mismatch.
func RequireErrorCode(t TestingT, err error, code string) {
	t.Helper()
	if !AssertErrorCode(t, err, code) {
		t.FailNow()
	}
}

// AssertErrorContext asserts that the merged oops context of err holds key=value.
func AssertErrorContext(t TestingT, err error, key string, value any) bool {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	ctx := oopsErr.Context()
	if !assert.Contains(t, ctx, key) {
		return false
	}
	return assert.Equal(t, value, ctx[key], "context key %q", key)
}
