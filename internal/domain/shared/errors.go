package shared

import "errors"

// Error codes shared across bounded contexts. The HTTP layer maps them to
// status codes in dto.ErrorCodeHTTPStatus.
const (
	CodeNotFound                = "NOT_FOUND"
	CodeAlreadyExists           = "ALREADY_EXISTS"
	CodeInvalidInput            = "INVALID_INPUT"
	CodeInvalidState            = "INVALID_STATE"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeForbidden               = "FORBIDDEN"
	CodeConfiguration           = "CONFIGURATION_ERROR"
	CodeInvalidSignature        = "INVALID_SIGNATURE"
	CodeGatewayUnavailable      = "GATEWAY_UNAVAILABLE"
	CodeEntitlementCommitFailed = "ENTITLEMENT_COMMIT_FAILED"
	CodeQuotaExceeded           = "QUOTA_EXCEEDED"
	CodeFeatureNotAvailable     = "FEATURE_NOT_AVAILABLE"
	CodeConcurrencyConflict     = "CONCURRENCY_CONFLICT"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Retryable marks failures the caller may retry with the same input.
	Retryable bool  `json:"retryable,omitempty"`
	cause     error `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches any DomainError with the same code, so that
// errors.Is(err, shared.ErrNotFound) works for errors built with NewDomainError.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewRetryableError creates a domain error the caller may retry
func NewRetryableError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:      code,
		Message:   message,
		Retryable: true,
		cause:     cause,
	}
}

// WithCause returns a copy of the error carrying the underlying cause
func (e *DomainError) WithCause(cause error) *DomainError {
	cp := *e
	cp.cause = cause
	return &cp
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrForbidden           = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrConfiguration       = NewDomainError(CodeConfiguration, "Service is misconfigured")
	ErrInvalidSignature    = NewDomainError(CodeInvalidSignature, "Payment signature verification failed")
	ErrGatewayUnavailable  = &DomainError{Code: CodeGatewayUnavailable, Message: "Payment gateway is unavailable", Retryable: true}
	ErrEntitlementCommit   = &DomainError{Code: CodeEntitlementCommitFailed, Message: "Payment verified but plan change could not be committed", Retryable: true}
	ErrQuotaExceeded       = NewDomainError(CodeQuotaExceeded, "Plan limit reached")
	ErrFeatureNotAvailable = NewDomainError(CodeFeatureNotAvailable, "Feature not available on current plan")
)

// IsRetryable reports whether err is a domain error flagged as retryable
func IsRetryable(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}

// ErrorCode extracts the domain error code, or "" for non-domain errors
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
