// Package apperrors defines the error taxonomy shared by services and the
// HTTP edge. Services return *Error values; controllers map them to HTTP.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

type Kind string

const (
	KindAuthMissing      Kind = "auth_missing"
	KindAuthInvalid      Kind = "auth_invalid"
	KindPermissionDenied Kind = "permission_denied"
	KindNotFound         Kind = "not_found"
	KindValidation       Kind = "validation"
	KindConflict         Kind = "conflict"
	KindSlotTaken        Kind = "slot_taken"
	KindRateLimited      Kind = "rate_limited"
	KindSignatureInvalid Kind = "payment_signature_invalid"
	KindPaymentState     Kind = "payment_state_conflict"
	KindPaymentProvider  Kind = "payment_provider_error"
	KindInternal         Kind = "internal"
)

// Stable codes surfaced to clients next to the message.
const (
	CodeSalonNotFound    = "SalonNotFound"
	CodeScheduleNotFound = "ScheduleNotFound"
	CodeEmployeeNotFound = "EmployeeNotFound"
	CodeUserNotFound     = "UserNotFound"
	CodeCardInvalid      = "CardInvalid"
	CodeTimeOutOfRange   = "TimeOutOfRange"
	CodeSlotTaken        = "SlotTaken"
)

// Error is a typed application error.
type Error struct {
	Kind       Kind
	Code       string
	Message    string
	Timeout    bool
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap attaches a cause to the error.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// WithCode sets the stable client-facing code.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func AuthMissing(msg string) *Error      { return newError(KindAuthMissing, msg) }
func AuthInvalid(msg string) *Error      { return newError(KindAuthInvalid, msg) }
func PermissionDenied(msg string) *Error { return newError(KindPermissionDenied, msg) }
func NotFound(msg string) *Error         { return newError(KindNotFound, msg) }
func Validation(msg string) *Error       { return newError(KindValidation, msg) }
func Conflict(msg string) *Error         { return newError(KindConflict, msg) }
func SignatureInvalid(msg string) *Error { return newError(KindSignatureInvalid, msg) }
func PaymentState(msg string) *Error     { return newError(KindPaymentState, msg) }
func Internal(msg string) *Error         { return newError(KindInternal, msg) }

func SlotTaken() *Error {
	return newError(KindSlotTaken, "this time slot is already booked").WithCode(CodeSlotTaken)
}

func RateLimited(retryAfter time.Duration) *Error {
	e := newError(KindRateLimited, "too many requests")
	e.RetryAfter = retryAfter
	return e
}

// ProviderError reports a failed call to the payment provider. Timeouts are
// flagged so clients know to reconcile the payment status later.
func ProviderError(msg string, timeout bool) *Error {
	e := newError(KindPaymentProvider, msg)
	e.Timeout = timeout
	return e
}

// As extracts an *Error from err, if any.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// HTTPStatus maps an error to the status code the edge responds with.
func HTTPStatus(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindAuthMissing, KindAuthInvalid:
		return http.StatusUnauthorized
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindSignatureInvalid, KindPaymentState:
		return http.StatusBadRequest
	case KindConflict, KindSlotTaken:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindPaymentProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
