// Package apperr defines the closed set of error kinds returned by the auth core
// and their stable client codes and HTTP statuses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error. The zero value is KindInternal.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUserExists
	KindInvalidCredentials
	KindAccountDeactivated
	KindInvalidRefreshToken
	KindRefreshTokenExpired
	KindTokenReuseDetected
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindRateLimited
	KindMethodNotAllowed
)

type kindInfo struct {
	code    string
	status  int
	message string
}

var kinds = map[Kind]kindInfo{
	KindInternal:            {"INTERNAL_ERROR", http.StatusInternalServerError, "Internal server error"},
	KindValidation:          {"VALIDATION_ERROR", http.StatusBadRequest, "Validation failed"},
	KindUserExists:          {"USER_EXISTS", http.StatusConflict, "User with this email already exists"},
	KindInvalidCredentials:  {"INVALID_CREDENTIALS", http.StatusUnauthorized, "Invalid email or password"},
	KindAccountDeactivated:  {"ACCOUNT_DEACTIVATED", http.StatusForbidden, "Account is deactivated"},
	KindInvalidRefreshToken: {"INVALID_REFRESH_TOKEN", http.StatusUnauthorized, "Invalid refresh token"},
	KindRefreshTokenExpired: {"REFRESH_TOKEN_EXPIRED", http.StatusUnauthorized, "Refresh token expired"},
	KindTokenReuseDetected:  {"TOKEN_REUSE_DETECTED", http.StatusUnauthorized, "Token reuse detected, all sessions revoked"},
	KindUnauthorized:        {"UNAUTHORIZED", http.StatusUnauthorized, "Authentication required"},
	KindForbidden:           {"FORBIDDEN", http.StatusForbidden, "Insufficient permissions"},
	KindNotFound:            {"NOT_FOUND", http.StatusNotFound, "Resource not found"},
	KindRateLimited:         {"RATE_LIMITED", http.StatusTooManyRequests, "Too many requests"},
	KindMethodNotAllowed:    {"METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed, "Method not allowed"},
}

// Code returns the stable machine-readable code for k.
func (k Kind) Code() string { return kinds[k].code }

// Status returns the HTTP status for k.
func (k Kind) Status() int { return kinds[k].status }

// String implements fmt.Stringer.
func (k Kind) String() string { return kinds[k].code }

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a classified application error. Err, when set, is the underlying cause and is never shown to clients.
type Error struct {
	Kind    Kind
	Message string
	Details []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.Code(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Code(), e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind, so errors.Is(err, apperr.New(KindX)) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New returns an Error of kind k with its default message.
func New(k Kind) *Error {
	return &Error{Kind: k, Message: kinds[k].message}
}

// Newf returns an Error of kind k with a formatted message.
func Newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

// Validation returns a KindValidation error carrying field details.
func Validation(details ...FieldError) *Error {
	e := New(KindValidation)
	e.Details = details
	return e
}

// Internal wraps an unexpected failure (storage, signing) as KindInternal.
func Internal(err error) *Error {
	e := New(KindInternal)
	e.Err = err
	return e
}

// KindOf returns the kind of err. Errors that are not *Error are KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// From returns err as an *Error, wrapping unclassified errors as KindInternal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}
