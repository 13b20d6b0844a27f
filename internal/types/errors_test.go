package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

// TestAppErrorErrorFormat verifies the Error() method produces "code: message".
func TestAppErrorErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeNotFoundAlert,
		Message: "alert not found",
	}

	expected := "not_found_alert: alert not found"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

// TestAppErrorUnwrap verifies the error chain support via Unwrap.
func TestAppErrorUnwrap(t *testing.T) {
	underlying := errors.New("database connection failed")
	appErr := NewAppError(ErrCodeInternalDB, "failed to list conditions", underlying)

	if appErr.Unwrap() != underlying {
		t.Errorf("Unwrap() returned unexpected error: got %v, want %v", appErr.Unwrap(), underlying)
	}
	if !errors.Is(appErr, underlying) {
		t.Error("errors.Is should find the underlying error through Unwrap")
	}
}

// TestAppErrorErrorsAs verifies that errors.As can extract AppError from an error chain.
func TestAppErrorErrorsAs(t *testing.T) {
	appErr := NewAppError(ErrCodeAnalysisSchema, "missing field", nil)
	wrapped := fmt.Errorf("analyzer: %w", appErr)

	var target *AppError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should find AppError in the chain")
	}
	if target.Code != ErrCodeAnalysisSchema {
		t.Errorf("extracted Code = %q, want %q", target.Code, ErrCodeAnalysisSchema)
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewAppError(ErrCodeTransientFetch, "timeout", nil))

	if !HasCode(err, ErrCodeTransientFetch) {
		t.Error("HasCode should match the wrapped code")
	}
	if HasCode(err, ErrCodeInternalDB) {
		t.Error("HasCode should not match a different code")
	}
	if HasCode(errors.New("plain"), ErrCodeInternalDB) {
		t.Error("HasCode should be false for non-AppError chains")
	}
	if HasCode(nil, ErrCodeInternalDB) {
		t.Error("HasCode should be false for nil")
	}
}

// TestAppErrorWithDetails verifies WithDetails creates a copy with merged details.
func TestAppErrorWithDetails(t *testing.T) {
	original := NewAppErrorWithDetails(
		ErrCodeValidationMissingField,
		"field is required",
		nil,
		map[string]any{"field": "condition_name"},
	)

	enhanced := original.WithDetails(map[string]any{"hint": "provide a name"})

	if _, ok := original.Details["hint"]; ok {
		t.Error("WithDetails should not mutate the original error")
	}
	if enhanced.Details["field"] != "condition_name" {
		t.Errorf("enhanced should retain original detail: field = %v", enhanced.Details["field"])
	}
	if enhanced.Details["hint"] != "provide a name" {
		t.Errorf("enhanced should have new detail: hint = %v", enhanced.Details["hint"])
	}
	if enhanced.Code != original.Code || enhanced.Message != original.Message {
		t.Error("Code and Message should carry over")
	}
}

func TestAppErrorWithDetailsNilOriginal(t *testing.T) {
	enhanced := NewAppError(ErrCodeNotFoundCondition, "not found", nil).
		WithDetails(map[string]any{"id": "cond_1"})

	if enhanced.Details["id"] != "cond_1" {
		t.Errorf("WithDetails on nil original should work: id = %v", enhanced.Details["id"])
	}
}

// TestErrorCodeHTTPStatusMapping covers every error code category.
func TestErrorCodeHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{ErrCodeValidationMissingField, http.StatusBadRequest},
		{ErrCodeValidationConditionType, http.StatusBadRequest},
		{ErrCodeValidationChannel, http.StatusBadRequest},
		{ErrCodeValidationThresholdRange, http.StatusBadRequest},
		{ErrCodeValidationThresholdUnit, http.StatusBadRequest},
		{ErrCodeValidationRequest, http.StatusBadRequest},

		{ErrCodeNotFoundAlert, http.StatusNotFound},
		{ErrCodeNotFoundCondition, http.StatusNotFound},

		{ErrCodeConflictResolved, http.StatusConflict},
		{ErrCodeConflictConcurrent, http.StatusConflict},

		{ErrCodeAnalysisSchema, http.StatusBadGateway},
		{ErrCodeUpstreamTextGen, http.StatusBadGateway},
		{ErrCodeUpstreamEmailProvider, http.StatusBadGateway},
		{ErrCodeUpstreamUnavailable, http.StatusBadGateway},
		{ErrCodeUpstreamRateLimited, http.StatusTooManyRequests},

		{ErrCodeInternalDB, http.StatusInternalServerError},
		{ErrCodeInternalPersistence, http.StatusInternalServerError},
		{ErrCodeInternalUnexpected, http.StatusInternalServerError},

		{ErrCodeTransientFetch, http.StatusInternalServerError},
		{ErrorCode("totally_unknown_error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			got := tt.code.HTTPStatus()
			if got != tt.wantStatus {
				t.Errorf("ErrorCode(%q).HTTPStatus() = %d, want %d", tt.code, got, tt.wantStatus)
			}
		})
	}
}

// TestAppErrorHTTPStatus verifies the convenience method on AppError.
func TestAppErrorHTTPStatus(t *testing.T) {
	appErr := NewAppError(ErrCodeNotFoundAlert, "not found", nil)
	if appErr.HTTPStatus() != http.StatusNotFound {
		t.Errorf("HTTPStatus() = %d, want %d", appErr.HTTPStatus(), http.StatusNotFound)
	}
}
