// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mail provides account.VerificationMailer transports.
package mail

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/samber/oops"

	"github.com/holomush/accountd/internal/account"
)

// VerificationSubject is the subject line of verification emails.
const VerificationSubject = "Verify email"

//go:embed templates/*.tmpl
var templateFS embed.FS

var verificationTemplate = template.Must(template.ParseFS(templateFS, "templates/verification.html.tmpl"))

// RenderVerification renders the HTML body of a verification email.
func RenderVerification(msg account.VerificationEmail) (string, error) {
	var buf bytes.Buffer
	if err := verificationTemplate.Execute(&buf, msg); err != nil {
		return "", oops.Code("MAIL_RENDER_FAILED").With("to", msg.To).Wrap(err)
	}
	return buf.String(), nil
}
