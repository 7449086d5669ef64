package wodstrat

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ErrTokenRejected is the parent of every session decode failure
var ErrTokenRejected = errors.New("token rejected")

// ErrMalformedToken token could not be parsed into session claims
var ErrMalformedToken = fmt.Errorf("%w: malformed token", ErrTokenRejected)

// ErrExpiredToken token exp claim is in the past
var ErrExpiredToken = fmt.Errorf("%w: expired token", ErrTokenRejected)

// ErrLoginFailed is returned by StateManager.Login when the token is rejected
var ErrLoginFailed = errors.New("login failed")

// ErrNoSession operation requires an authenticated session
var ErrNoSession = errors.New("no active session")

// ErrEmptyPassword password hashing refuses empty input
var ErrEmptyPassword = errors.New("password must not be empty")

// ErrPasswordMismatch password does not match the stored hash
var ErrPasswordMismatch = errors.New("password does not match")

const (
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeEmailTaken         = "EMAIL_TAKEN"
	TextCodeAthleteExists      = "ATHLETE_EXISTS"
	TextCodeAthleteNotFound    = "ATHLETE_NOT_FOUND"
	TextCodeRecordNotFound     = "RECORD_NOT_FOUND"
	TextCodeValidation         = "VALIDATION_FAILED"
	TextCodeUnauthorized       = "UNAUTHORIZED"
	TextCodeRateLimited        = "RATE_LIMITED"
	TextCodeInternal           = "INTERNAL_ERROR"
)

// ErrTokenExpired is the API facing error for expired bearer tokens
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is the API facing error for unreadable bearer tokens
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidCredentials is returned for unknown emails and bad passwords alike
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailTaken registration with an email that already exists
var ErrEmailTaken = goerrors.New("email is already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// ErrAthleteExists a user can only own one athlete profile
var ErrAthleteExists = goerrors.New("athlete profile already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeAthleteExists).
	WithCode(goerrors.CodeConflict)

// ErrAthleteNotFound user has not created an athlete profile yet
var ErrAthleteNotFound = goerrors.New("athlete profile not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAthleteNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUnauthorized request carried no usable bearer token
var ErrUnauthorized = goerrors.New("missing or malformed JWT", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(goerrors.CodeUnauthorized)

// ErrRateLimited caller exceeded the configured request rate
var ErrRateLimited = goerrors.New("too many requests", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeRateLimited).
	WithCode(http.StatusTooManyRequests)

// ErrRecordNotFound repository lookup returned no rows
var ErrRecordNotFound = goerrors.New("record not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeRecordNotFound).
	WithCode(goerrors.CodeNotFound)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrExpiredToken) || HasTextCode(err, TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMalformedToken) || HasTextCode(err, TextCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsRecordNotFound reports repository misses
func IsRecordNotFound(err error) bool {
	return HasTextCode(err, TextCodeRecordNotFound)
}

// HasTextCode reports whether err is a rich error carrying the given text code
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

// cloneErr copies a sentinel so metadata does not leak between callers
func cloneErr(e *goerrors.Error) *goerrors.Error {
	return e.Clone()
}
