package domain

import (
	"errors"
	"fmt"
)

// Error codes carried by *Error. The handler layer maps each one to an HTTP
// status; anything it does not recognise is reported as EINTERNAL.
const (
	EINVALID      = "invalid"
	EUNAUTHORIZED = "unauthorized"
	EFORBIDDEN    = "forbidden"
	ENOTFOUND     = "not_found"
	ECONFLICT     = "conflict"      // duplicate list, code already redeemed
	EGONE         = "gone"          // referral code no longer redeemable
	ETOOLARGE     = "too_large"     // request body or upload over its cap
	ERATELIMIT    = "rate_limit"    // per-client request budget spent
	EINTERNAL     = "internal"
	ENOTIMPL      = "not_impl"      // billing disabled in this deployment
	EPAYMENT      = "payment"
	EQUOTA        = "quota"         // list or share-image allowance spent
)

// internalMessage is what clients see for any EINTERNAL or untyped error.
const internalMessage = "An internal error occurred. Please try again later."

// Error is the error type every service returns. Op names the failing
// operation as "<service>.<action>" so log lines can be grouped by it; Err is
// kept for logging only and never reaches the client.
type Error struct {
	Code    string
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return e.Op + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code, op, message string, err error) *Error {
	return &Error{Code: code, Op: op, Message: message, Err: err}
}

// Errorf builds an *Error whose client-facing message is formatted.
func Errorf(code, op, format string, args ...interface{}) *Error {
	return newError(code, op, fmt.Sprintf(format, args...), nil)
}

// ErrorCode classifies err. Validation failures report EINVALID and errors
// that are not *Error report EINTERNAL.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return EINVALID
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the text safe to show a client. Internal details are
// replaced by a generic sentence.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return "Validation failed"
	}
	var e *Error
	if errors.As(err, &e) && e.Code != EINTERNAL {
		return e.Message
	}
	return internalMessage
}

// ErrorOp returns the Op of the outermost *Error in the chain.
func ErrorOp(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// NotFound reports a missing list, code or user by its identifier.
func NotFound(op, resource, id string) *Error {
	return newError(ENOTFOUND, op, fmt.Sprintf("%s with ID %q not found", resource, id), nil)
}

func Invalid(op, message string) *Error { return newError(EINVALID, op, message, nil) }

func Unauthorized(op, message string) *Error { return newError(EUNAUTHORIZED, op, message, nil) }

func Forbidden(op, message string) *Error { return newError(EFORBIDDEN, op, message, nil) }

func Conflict(op, message string) *Error { return newError(ECONFLICT, op, message, nil) }

// Internal wraps a storage or upstream failure. message is logged, not shown.
func Internal(err error, op, message string) *Error {
	return newError(EINTERNAL, op, message, err)
}

// RateLimit reports a spent per-client request budget.
func RateLimit(op string) *Error {
	return newError(ERATELIMIT, op, "Too many requests. Please try again later.", nil)
}

// QuotaExceeded reports a spent list or share-image allowance.
func QuotaExceeded(op string, quota QuotaType, used, limit int) *Error {
	return newError(EQUOTA, op, fmt.Sprintf("%s limit reached (%d of %d used)", quota, used, limit), nil)
}

// ValidationError collects per-field input problems. Handlers render Fields
// verbatim under "fields".
type ValidationError struct {
	Op     string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e.Op == "" {
		return "validation failed"
	}
	return e.Op + ": validation failed"
}

// Add records a field error and returns the receiver for chaining.
func (e *ValidationError) Add(field, message string) *ValidationError {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
	return e
}

// OrNil returns nil when no field errors were recorded.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NewValidationError starts a ValidationError with a single field.
func NewValidationError(op, field, message string) *ValidationError {
	return (&ValidationError{Op: op}).Add(field, message)
}
