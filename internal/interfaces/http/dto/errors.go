package dto

import (
	"net/http"

	"github.com/billforge/backend/internal/domain/shared"
)

// Error codes carried in the response envelope. Domain codes pass through
// unchanged; the rest are raised by the HTTP layer itself.
const (
	ErrCodeNotFound                = shared.CodeNotFound
	ErrCodeAlreadyExists           = shared.CodeAlreadyExists
	ErrCodeInvalidInput            = shared.CodeInvalidInput
	ErrCodeInvalidState            = shared.CodeInvalidState
	ErrCodeUnauthorized            = shared.CodeUnauthorized
	ErrCodeForbidden               = shared.CodeForbidden
	ErrCodeConfiguration           = shared.CodeConfiguration
	ErrCodeInvalidSignature        = shared.CodeInvalidSignature
	ErrCodeGatewayUnavailable      = shared.CodeGatewayUnavailable
	ErrCodeEntitlementCommitFailed = shared.CodeEntitlementCommitFailed
	ErrCodeQuotaExceeded           = shared.CodeQuotaExceeded
	ErrCodeFeatureNotAvailable     = shared.CodeFeatureNotAvailable
	ErrCodeConcurrencyConflict     = shared.CodeConcurrencyConflict
)

// HTTP-only codes
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid    = "INVALID_TOKEN"
	ErrCodeTokenRevoked    = "TOKEN_REVOKED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeNotFound:                http.StatusNotFound,
	ErrCodeAlreadyExists:           http.StatusConflict,
	ErrCodeInvalidInput:            http.StatusBadRequest,
	ErrCodeInvalidState:            http.StatusConflict,
	ErrCodeUnauthorized:            http.StatusUnauthorized,
	ErrCodeForbidden:               http.StatusForbidden,
	ErrCodeConfiguration:           http.StatusInternalServerError,
	ErrCodeInvalidSignature:        http.StatusBadRequest,
	ErrCodeGatewayUnavailable:      http.StatusServiceUnavailable,
	ErrCodeEntitlementCommitFailed: http.StatusInternalServerError,
	ErrCodeQuotaExceeded:           http.StatusPaymentRequired,
	ErrCodeFeatureNotAvailable:     http.StatusForbidden,
	ErrCodeConcurrencyConflict:     http.StatusConflict,

	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeTokenExpired:    http.StatusUnauthorized,
	ErrCodeTokenInvalid:    http.StatusUnauthorized,
	ErrCodeTokenRevoked:    http.StatusUnauthorized,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// exposesMessage reports whether a domain message may be shown to the caller.
// Server-side failures get a generic message; the detail goes to the log.
func exposesMessage(code string) bool {
	return GetHTTPStatus(code) < http.StatusInternalServerError || code == ErrCodeGatewayUnavailable
}
