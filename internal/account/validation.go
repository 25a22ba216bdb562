// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Password length bounds.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// SignupInput is the payload of a signup request.
type SignupInput struct {
	FirstName string `json:"firstName" validate:"omitempty,max=64"`
	Email     string `json:"email" validate:"required,email,tld"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
}

// LoginInput is the payload of a login request.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email,tld"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// SubscriptionInput is the payload of a subscription update.
type SubscriptionInput struct {
	Subscription string `json:"subscription" validate:"required,oneof=starter pro business"`
}

// ReverifyInput is the payload of a verification resend request.
type ReverifyInput struct {
	Email string `json:"email" validate:"required"`
}

// Validator checks request payloads before they reach the services.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with the account rules registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	//nolint:errcheck // registration only fails for an empty tag
	_ = v.RegisterValidation("tld", validateTLD)
	return &Validator{validate: v}
}

// ValidateSignup checks a signup payload.
func (v *Validator) ValidateSignup(in SignupInput) error {
	return v.check(in, "")
}

// ValidateLogin checks a login payload.
func (v *Validator) ValidateLogin(in LoginInput) error {
	return v.check(in, "")
}

// ValidateSubscription checks a subscription payload.
func (v *Validator) ValidateSubscription(in SubscriptionInput) error {
	return v.check(in, MsgInvalidTier)
}

// ValidateReverify checks a verification resend payload.
func (v *Validator) ValidateReverify(in ReverifyInput) error {
	return v.check(in, MsgMissingEmail)
}

// check runs struct validation. A non-empty message replaces the
// message derived from the first failing field.
func (v *Validator) check(in any, message string) error {
	err := v.validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ErrValidation(MsgValidation, nil)
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = describe(fe)
	}
	if message == "" {
		message = describe(fieldErrs[0])
	}
	return ErrValidation(message, fields)
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", field)
	case "email", "tld":
		return fmt.Sprintf("%q must be a valid email", field)
	case "min":
		return fmt.Sprintf("%q length must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%q length must be less than or equal to %s characters long", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%q must be one of [%s]", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%q is invalid", field)
	}
}

// validateTLD requires the email domain to end in an alphabetic label of
// at least two characters.
func validateTLD(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	at := strings.LastIndexByte(value, '@')
	if at < 0 {
		return false
	}
	domain := value[at+1:]
	dot := strings.LastIndexByte(domain, '.')
	if dot <= 0 {
		return false
	}
	tld := domain[dot+1:]
	if len(tld) < 2 {
		return false
	}
	for _, r := range tld {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
