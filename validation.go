package auth

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 128
	// bcrypt refuses input longer than 72 bytes
	maxPasswordBytes = 72
	minNameLength    = 2
	maxNameLength    = 150
	maxEmailLength   = 255
)

var errPasswordTooManyBytes = validation.NewError(
	"validation_password_too_long",
	"the length must be no more than 72 bytes",
)

var (
	emailRules    = []validation.Rule{validation.Required, is.EmailFormat, validation.Length(0, maxEmailLength)}
	passwordRules = []validation.Rule{
		validation.Required,
		validation.Length(minPasswordLength, maxPasswordLength),
		validation.By(passwordBytes),
	}
)

// passwordBytes enforces the bcrypt input limit. Length counts runes,
// so a multi byte password can pass it and still be too long to hash.
func passwordBytes(value any) error {
	s, _ := value.(string)
	if len(s) > maxPasswordBytes {
		return errPasswordTooManyBytes
	}
	return nil
}

// validatePayload runs fn and converts ozzo errors into a request body
// validation error whose field map is rendered to clients
func validatePayload(fn func() error) error {
	if err := goerrors.ValidateWithOzzo(fn, "request body validation failed"); err != nil {
		return err.
			WithCode(goerrors.CodeBadRequest).
			WithTextCode(TextCodeValidation)
	}
	return nil
}

// IsValidationError checks for request body validation failures
func IsValidationError(err error) bool {
	return HasTextCode(err, TextCodeValidation)
}
