package dto

import (
	"net/http"
	"strings"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeInvalidCurrency is used when a currency is not an ISO 4217 code
	ErrCodeInvalidCurrency = "ERR_VALIDATION_CURRENCY"
	// ErrCodeInvalidAmount is used when a money amount is not positive
	ErrCodeInvalidAmount = "ERR_VALIDATION_AMOUNT"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeHasSettlements is used when an entry's amount or status is locked by settlements
	ErrCodeHasSettlements = "ERR_HAS_SETTLEMENTS"
	// ErrCodeRateUnavailable is used when no rate source knows a currency pair
	ErrCodeRateUnavailable = "ERR_RATE_UNAVAILABLE"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidTenant is used when the X-Tenant-ID header is missing or malformed
	ErrCodeInvalidTenant = "ERR_INVALID_TENANT"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeInvalidCurrency: http.StatusBadRequest,
	ErrCodeInvalidAmount:   http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:    http.StatusUnprocessableEntity,
	ErrCodeHasSettlements:  http.StatusUnprocessableEntity,
	ErrCodeRateUnavailable: http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeInvalidInput:  http.StatusBadRequest,
	ErrCodeInvalidTenant: http.StatusBadRequest,

	// Limits
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unmapped ERR_VALIDATION_* codes are 400; anything else unknown is 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, ErrCodeValidation+"_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to the API codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ITEM_NOT_FOUND":       ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"HAS_SETTLEMENTS":      ErrCodeHasSettlements,
	"RATE_UNAVAILABLE":     ErrCodeRateUnavailable,
	"INVALID_CURRENCY":     ErrCodeInvalidCurrency,
	"INVALID_AMOUNT":       ErrCodeInvalidAmount,
	"INVALID_TENANT":       ErrCodeInvalidTenant,
	"INTERNAL_ERROR":       ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Other INVALID_<FIELD> codes become ERR_VALIDATION_<FIELD>; unknown codes are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	if field, ok := strings.CutPrefix(code, "INVALID_"); ok && field != "" {
		return ErrCodeValidation + "_" + field
	}
	return code
}
