package carrier

import (
	"errors"
	"fmt"
	"time"
)

// Code is a stable error category shared by every component. The set is
// closed: consumers may switch on these values.
type Code string

const (
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeAuthFailed      Code = "AUTH_FAILED"
	CodeRateLimited     Code = "RATE_LIMITED"
	CodeCarrierAPI      Code = "CARRIER_API_ERROR"
	CodeNetwork         Code = "NETWORK_ERROR"
	CodeTimeout         Code = "TIMEOUT"
	CodeParse           Code = "PARSE_ERROR"
	CodeCarrierNotFound Code = "CARRIER_NOT_FOUND"
	CodeUnknown         Code = "UNKNOWN"
)

// FieldIssue is a single field-level validation problem.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the shared error envelope for the rating system. Every failure
// surfaced to a caller is one of these, carrying a stable code, carrier
// attribution, retryability, and optional HTTP status and structured details.
type Error struct {
	Code       Code
	Carrier    string
	Message    string
	StatusCode int
	Retryable  bool

	// RetryAfter is set only on rate-limit errors when the carrier supplied
	// a Retry-After header.
	RetryAfter time.Duration

	// Details carries structured context such as field-level validation
	// issues or the carrier's raw error body.
	Details map[string]any

	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Carrier, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Carrier, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is: two taxonomy errors match when their codes match.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a taxonomy error with the default retryability for its
// code: timeouts, network errors, and rate limits are retryable; validation,
// auth, parse, and not-found errors never are. Generic carrier API errors
// default to non-retryable until a status code says otherwise.
func NewError(carrier string, code Code, message string) *Error {
	if carrier == "" {
		carrier = "unknown"
	}
	return &Error{
		Code:      code,
		Carrier:   carrier,
		Message:   message,
		Retryable: defaultRetryable(code),
	}
}

func defaultRetryable(code Code) bool {
	switch code {
	case CodeTimeout, CodeNetwork, CodeRateLimited:
		return true
	}
	return false
}

// WithCause attaches the underlying cause.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithStatusCode records the HTTP status associated with the failure.
// Carrier API errors become retryable for server-class statuses.
func (e *Error) WithStatusCode(status int) *Error {
	e.StatusCode = status
	if e.Code == CodeCarrierAPI {
		e.Retryable = status >= 500
	}
	return e
}

// WithDetails attaches structured details.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// WithRetryAfter records the carrier-supplied retry-after hint.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = d
	return e
}

// NewValidationError builds a validation failure carrying the collected
// field issues in its details.
func NewValidationError(issues []FieldIssue) *Error {
	err := NewError("", CodeValidation, "Invalid rate request")
	err.Details = map[string]any{"issues": issues}
	return err
}

// NewAuthError builds an authentication failure for a carrier.
func NewAuthError(carrier, message string, cause error) *Error {
	err := NewError(carrier, CodeAuthFailed, message).WithCause(cause)
	err.StatusCode = 401
	return err
}

// CodeOf extracts the taxonomy code from any error, returning CodeUnknown
// for errors outside the taxonomy.
func CodeOf(err error) Code {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code
	}
	return CodeUnknown
}

// IsRetryable reports whether the error may be retried per the taxonomy.
func IsRetryable(err error) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Retryable
	}
	return false
}

// ValidationIssues returns the field issues attached to a validation error,
// or nil if err is not one.
func ValidationIssues(err error) []FieldIssue {
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Code != CodeValidation {
		return nil
	}
	issues, _ := cerr.Details["issues"].([]FieldIssue)
	return issues
}

// IsAuthFailure reports whether err should trigger the adapter-level
// invalidate-and-retry: either an AUTH_FAILED error or a generic carrier
// error carrying HTTP 401.
func IsAuthFailure(err error) bool {
	var cerr *Error
	if !errors.As(err, &cerr) {
		return false
	}
	if cerr.Code == CodeAuthFailed {
		return true
	}
	return cerr.Code == CodeCarrierAPI && cerr.StatusCode == 401
}
