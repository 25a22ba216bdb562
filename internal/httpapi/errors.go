// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/holomush/accountd/internal/account"
	"github.com/holomush/accountd/pkg/errutil"
)

// CodeInternal is the problem code of every unexpected failure.
const CodeInternal = "INTERNAL"

// Problem is an RFC 7807 problem document.
type Problem struct {
	Type   string            `json:"type,omitempty"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Code   string            `json:"code,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// StatusFor maps an account error code to an HTTP status.
func StatusFor(err error) int {
	switch account.ErrorCode(err) {
	case account.CodeValidation, account.CodeAlreadyVerified:
		return http.StatusBadRequest
	case account.CodeConflict:
		return http.StatusConflict
	case account.CodeUnauthorized, account.CodeTokenInvalid, account.CodeTokenExpired:
		return http.StatusUnauthorized
	case account.CodeEmailNotVerified:
		return http.StatusForbidden
	case account.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ProblemFor builds the client-facing problem for err. Internal failures
// carry only a generic detail.
func ProblemFor(err error) Problem {
	status := StatusFor(err)
	p := Problem{
		Title:  http.StatusText(status),
		Status: status,
		Detail: account.PublicMessage(err),
	}
	if status == http.StatusInternalServerError {
		p.Code = CodeInternal
		p.Detail = account.MsgInternal
		return p
	}
	p.Code = account.ErrorCode(err)
	p.Errors = account.FieldErrors(err)
	return p
}

// WriteError writes err as a problem document. Server faults are logged
// with their full context; client errors only at debug.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	p := ProblemFor(err)
	if p.Status >= http.StatusInternalServerError {
		errutil.LogErrorContext(r.Context(), logger, "request failed", err)
	} else {
		logger.DebugContext(r.Context(), "request rejected",
			"status", p.Status,
			"code", p.Code,
			"path", r.URL.Path,
		)
	}
	writeProblem(w, p)
}
