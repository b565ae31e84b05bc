package apperr

import (
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindValidation              Kind = "VALIDATION_ERROR"
	KindNotFound                Kind = "NOT_FOUND"
	KindForbidden               Kind = "FORBIDDEN"
	KindConflict                Kind = "CONFLICT"
	KindThrottled               Kind = "THROTTLED"
	KindUnavailable             Kind = "SERVICE_UNAVAILABLE"
	KindInvalidIdempotencyToken Kind = "INVALID_IDEMPOTENCY_TOKEN"
	KindInvalidPaginationToken  Kind = "INVALID_PAGINATION_TOKEN"
	KindUnauthorized            Kind = "UNAUTHORIZED"
	KindUnexpected              Kind = "INTERNAL_ERROR"
)

// Error is the typed error surfaced by usecases. Message is safe to show to
// clients; Err carries the underlying cause for logs.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration
	LoanID     string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can write errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind-only sentinels for errors.Is.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrThrottled    = &Error{Kind: KindThrottled}
	ErrUnavailable  = &Error{Kind: KindUnavailable}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
)

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *Error { return New(KindValidation, msg) }
func NotFound(msg string) *Error   { return New(KindNotFound, msg) }
func Forbidden(msg string) *Error  { return New(KindForbidden, msg) }
func Conflict(msg string) *Error   { return New(KindConflict, msg) }

func Throttled(err error, retryAfter time.Duration) *Error {
	return &Error{Kind: KindThrottled, Message: "store is throttling requests", RetryAfter: retryAfter, Err: err}
}

func Unavailable(err error, retryAfter time.Duration) *Error {
	return &Error{Kind: KindUnavailable, Message: "store temporarily unavailable", RetryAfter: retryAfter, Err: err}
}

func Unexpected(err error) *Error {
	return &Error{Kind: KindUnexpected, Message: "internal error", Err: err}
}

// KindOf reports the Kind of the first *Error in err's chain, or
// KindUnexpected for anything untyped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// RetryAfterOf returns the retry hint carried by err, if any.
func RetryAfterOf(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}

// LoanIDOf returns the loan id attached to err for manual remediation.
func LoanIDOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.LoanID
	}
	return ""
}

// MessageOf returns the client-safe message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal error"
}

// IsTransient reports whether the caller may retry err later.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case KindThrottled, KindUnavailable:
		return true
	}
	return false
}
