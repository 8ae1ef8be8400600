package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes rendered in the "error" field of API error responses
const (
	TextCodeValidation            = "ERROR_REQUEST_BODY_VALIDATION"
	TextCodeUserAlreadyExists     = "USER_ALREADY_EXISTS"
	TextCodeInvalidCredentials    = "ERROR_INVALID_CREDENTIALS"
	TextCodeNotAuthenticated      = "ERROR_NOT_AUTHENTICATED"
	TextCodeInvalidToken          = "ERROR_INVALID_TOKEN"
	TextCodeExpiredToken          = "ERROR_EXPIRED_TOKEN"
	TextCodeInvalidOldPassword    = "ERROR_INVALID_OLD_PASSWORD"
	TextCodeBadTokenSignature     = "ERROR_BAD_TOKEN_SIGNATURE"
	TextCodeExpiredTokenSignature = "ERROR_EXPIRED_TOKEN_SIGNATURE"
	TextCodeUserNotFound          = "ERROR_USER_NOT_FOUND"
	TextCodeRecordNotFound        = "RECORD_NOT_FOUND"
	TextCodeEmptyPassword         = goerrors.TextCodeEmptyPassword
	TextCodeInternal              = "INTERNAL_ERROR"
)

// The values below are shared and must never be mutated by callers.
// Use Clone before decorating one with request specific data.
var (
	// ErrUserAlreadyExists is returned when the email address is taken
	ErrUserAlreadyExists = goerrors.New("a user with that email address already exists", goerrors.CategoryConflict).
				WithCode(goerrors.CodeBadRequest).
				WithTextCode(TextCodeUserAlreadyExists)

	// ErrInvalidCredentials is the single login failure; it never says which part was wrong
	ErrInvalidCredentials = goerrors.New("no active account found with the given credentials", goerrors.CategoryAuth).
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode(TextCodeInvalidCredentials)

	// ErrNotAuthenticated is returned when a protected route has no usable bearer token
	ErrNotAuthenticated = goerrors.New("authentication credentials were not provided", goerrors.CategoryAuth).
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode(TextCodeNotAuthenticated)

	// ErrInvalidToken covers tampering, wrong secret, wrong token type and malformed input
	ErrInvalidToken = goerrors.New("token is invalid", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(TextCodeInvalidToken)

	// ErrExpiredToken is returned for an authentic token past its expiry
	ErrExpiredToken = goerrors.New("token is expired", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(TextCodeExpiredToken)

	// ErrInvalidOldPassword is returned when change password gets a wrong current password
	ErrInvalidOldPassword = goerrors.New("old password does not match", goerrors.CategoryBadInput).
				WithCode(goerrors.CodeBadRequest).
				WithTextCode(TextCodeInvalidOldPassword)

	// ErrBadTokenSignature is returned for a tampered or foreign reset token
	ErrBadTokenSignature = goerrors.New("password reset token signature is invalid", goerrors.CategoryBadInput).
				WithCode(goerrors.CodeBadRequest).
				WithTextCode(TextCodeBadTokenSignature)

	// ErrExpiredTokenSignature is returned for an authentic reset token older than the max age
	ErrExpiredTokenSignature = goerrors.New("password reset token has expired", goerrors.CategoryBadInput).
					WithCode(goerrors.CodeBadRequest).
					WithTextCode(TextCodeExpiredTokenSignature)

	// ErrUserNotFound is returned when a reset token points to a user that does not exist
	ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest).
			WithTextCode(TextCodeUserNotFound)

	// ErrNoEmptyString is returned when hashing an empty password
	ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
				WithCode(goerrors.CodeBadRequest).
				WithTextCode(TextCodeEmptyPassword)

	// ErrMismatchedHashAndPassword is the internal result of a failed password compare
	ErrMismatchedHashAndPassword = goerrors.New("password does not match hash", goerrors.CategoryAuth).
					WithCode(goerrors.CodeUnauthorized).
					WithTextCode(TextCodeInvalidCredentials)
)

// NewRecordNotFound returns a not found error for store lookups
func NewRecordNotFound(entity string) *goerrors.Error {
	return goerrors.New(entity+" not found", goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound).
		WithTextCode(TextCodeRecordNotFound)
}

// HasTextCode reports whether err is a rich error carrying code.
// Wrapping with goerrors.Wrap clones the error, so identity checks are unreliable.
func HasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeExpiredToken) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsInvalidTokenError will check for tokens rejected for any reason other than expiry
func IsInvalidTokenError(err error) bool {
	return HasTextCode(err, TextCodeInvalidToken)
}

// IsRecordNotFound checks for store lookups that found nothing
func IsRecordNotFound(err error) bool {
	return goerrors.IsNotFound(err)
}

// IsUserAlreadyExists checks for email uniqueness violations
func IsUserAlreadyExists(err error) bool {
	return HasTextCode(err, TextCodeUserAlreadyExists)
}
