// Package apperr defines the error taxonomy shared by services and handlers.
// Services return *Error values; the HTTP layer maps them to a status code and
// the response envelope in one place.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the error category. It decides the HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindRateLimit
)

// Machine readable codes carried in the envelope.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeDuplicateRequest = "DUPLICATE_REQUEST"
	CodeInvalidState     = "INVALID_STATE"
	CodeInvalidAction    = "INVALID_ACTION"
	CodeConflict         = "CONFLICT"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL"
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is an application error with a category, a stable code and a message
// that is safe to show to the caller.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func Validation(msg string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: msg, Fields: fields}
}

func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindAuthentication, Code: CodeUnauthenticated, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindAuthorization, Code: CodeForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Code: CodeConflict, Message: msg}
}

func DuplicateRequest() *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeDuplicateRequest,
		Message: "an active request already exists between these members",
	}
}

// InvalidState reports a transition attempted from the wrong status.
func InvalidState(msg string) *Error {
	return &Error{Kind: KindConflict, Code: CodeInvalidState, Message: msg}
}

// InvalidAction reports a moderation action outside the allowed set for a resource.
func InvalidAction(action, resource string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeInvalidAction,
		Message: fmt.Sprintf("action %q is not allowed on %s", action, resource),
	}
}

func RateLimited() *Error {
	return &Error{Kind: KindRateLimit, Code: CodeRateLimited, Message: "rate limit exceeded, please slow down"}
}

// Internal wraps an unexpected failure. The message never includes err.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal server error", Err: err}
}

// From converts any error into an *Error, treating unknown errors as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// HasCode reports whether err is an *Error with the given code.
func HasCode(err error, code string) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
