package dto

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidCurrency, http.StatusBadRequest},
		{"ERR_VALIDATION_FREQUENCY", http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeHasSettlements, http.StatusUnprocessableEntity},
		{ErrCodeRateUnavailable, http.StatusUnprocessableEntity},
		{ErrCodeInvalidTenant, http.StatusBadRequest},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"ITEM_NOT_FOUND", ErrCodeNotFound},
		{"ALREADY_EXISTS", ErrCodeAlreadyExists},
		{"INVALID_STATE", ErrCodeInvalidState},
		{"HAS_SETTLEMENTS", ErrCodeHasSettlements},
		{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict},
		{"RATE_UNAVAILABLE", ErrCodeRateUnavailable},
		{"INVALID_CURRENCY", ErrCodeInvalidCurrency},
		{"INVALID_COUNTERPARTY_NAME", "ERR_VALIDATION_COUNTERPARTY_NAME"},
		{"INVALID_", "INVALID_"},
		// Already normalized codes pass through
		{ErrCodeNotFound, ErrCodeNotFound},
		{"SOMETHING_ELSE", "SOMETHING_ELSE"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestDomainCodesMapToExpectedStatus(t *testing.T) {
	tests := map[string]int{
		"NOT_FOUND":            http.StatusNotFound,
		"INVALID_AMOUNT":       http.StatusBadRequest,
		"INVALID_FREQUENCY":    http.StatusBadRequest,
		"INVALID_STATE":        http.StatusUnprocessableEntity,
		"HAS_SETTLEMENTS":      http.StatusUnprocessableEntity,
		"CONCURRENCY_CONFLICT": http.StatusConflict,
		"ALREADY_EXISTS":       http.StatusConflict,
	}
	for code, status := range tests {
		assert.Equal(t, status, GetHTTPStatus(NormalizeErrorCode(code)), code)
	}
}

func TestErrorCodeFormat(t *testing.T) {
	for code := range ErrorCodeHTTPStatus {
		assert.True(t, strings.HasPrefix(code, "ERR_"), code)
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Entry not found", "req-1")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-2", []ValidationDetail{
		{Field: "currency", Message: "Must be an ISO 4217 currency code"},
	})

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "currency", resp.Error.Details[0].Field)
}

func TestErrorResponseJSON(t *testing.T) {
	data, err := json.Marshal(NewErrorResponse(ErrCodeInvalidState, "Entry is cancelled"))
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, false, out["success"])
	assert.NotContains(t, out, "data")
	assert.NotContains(t, out, "meta")
	errObj := out["error"].(map[string]any)
	assert.Equal(t, ErrCodeInvalidState, errObj["code"])
	assert.NotContains(t, errObj, "details")
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 45, 2, 20)

	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	defaulted := NewSuccessResponseWithMeta(nil, 5, 0, 0)
	assert.Equal(t, 1, defaulted.Meta.Page)
	assert.Equal(t, DefaultPageSize, defaulted.Meta.PageSize)
	assert.Equal(t, 1, defaulted.Meta.TotalPages)
}
