package auth

import (
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// ErrorCode is the machine readable code carried by 401/403/404/500 responses.
type ErrorCode string

const (
	CodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	CodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	CodeArchived           ErrorCode = "ARCHIVED"
	CodeAccessDenied       ErrorCode = "ACCESS_DENIED"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeInternalError      ErrorCode = "INTERNAL_ERROR"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeBadRequest         ErrorCode = "BAD_REQUEST"
)

// StatusCode returns the HTTP status associated with the code.
func (c ErrorCode) StatusCode() int {
	switch c {
	case CodeTokenExpired, CodeInvalidToken, CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeArchived, CodeAccessDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user facing message for the code.
func (c ErrorCode) Message() string {
	switch c {
	case CodeTokenExpired:
		return "session expired, please sign in again"
	case CodeInvalidToken:
		return "invalid authentication token"
	case CodeArchived:
		return "this wedding has been archived"
	case CodeAccessDenied:
		return "you do not have access to this wedding"
	case CodeNotFound:
		return "wedding not found"
	case CodeInvalidCredentials:
		return "invalid username or password"
	case CodeBadRequest:
		return "invalid request"
	default:
		return "internal server error"
	}
}

// ErrAccountNotFound is returned by credential stores for unknown usernames
var ErrAccountNotFound = errors.New("account not found")

// ErrWeddingNotFound is returned by wedding stores for unknown weddings
var ErrWeddingNotFound = errors.New("wedding not found")

// ErrInvalidCredentials unknown user or wrong password
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidClaims token claims do not describe a valid identity
var ErrInvalidClaims = errors.New("invalid identity claims")

// ErrMissingToken request carried no bearer token
var ErrMissingToken = errors.New("missing or malformed authorization header")

// ErrNoEmptyString empty password
var ErrNoEmptyString = errors.New("password cannot be empty")

// ErrMismatchedHashAndPassword password does not match hash
var ErrMismatchedHashAndPassword = errors.New("password does not match")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return errors.Is(err, ErrTokenExpired)
}

// IsMalformedError will check for structurally invalid tokens
func IsMalformedError(err error) bool {
	return errors.Is(err, ErrTokenMalformed) || errors.Is(err, ErrMissingToken)
}

// CodeFromError maps an error produced by this package to its ErrorCode.
// Sentinels win; otherwise the go-errors category of err decides.
func CodeFromError(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTokenExpired):
		return CodeTokenExpired
	case errors.Is(err, ErrTokenMalformed),
		errors.Is(err, ErrTokenBadSignature),
		errors.Is(err, ErrMissingToken),
		errors.Is(err, ErrInvalidClaims):
		return CodeInvalidToken
	case errors.Is(err, ErrInvalidCredentials):
		return CodeInvalidCredentials
	case errors.Is(err, ErrWeddingNotFound):
		return CodeNotFound
	case goerrors.IsCategory(err, goerrors.CategoryBadInput),
		goerrors.IsCategory(err, goerrors.CategoryValidation):
		return CodeBadRequest
	case goerrors.IsCategory(err, goerrors.CategoryNotFound):
		return CodeNotFound
	case goerrors.IsCategory(err, goerrors.CategoryAuth):
		return CodeInvalidCredentials
	case goerrors.IsCategory(err, goerrors.CategoryAuthz):
		return CodeAccessDenied
	default:
		return CodeInternalError
	}
}
