package core

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"carewatch/internal/types"
)

// maxRequestBodySize caps decoded request bodies at 1 MB.
const maxRequestBodySize = 1 << 20

// APIResponse is the envelope for successful responses.
type APIResponse struct {
	Data any       `json:"data,omitempty"`
	Meta *ListMeta `json:"meta,omitempty"`
}

// ListMeta accompanies collection responses.
type ListMeta struct {
	Count int `json:"count"`
}

// APIErrorResponse is the envelope for error responses.
type APIErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the client-visible part of an AppError.
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// JSON marshals data and writes it with the given status. A marshal failure
// is reported as a 500 with internal_unexpected_error.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(APIErrorResponse{Error: ErrorDetail{
			Code:      string(types.ErrCodeInternalUnexpected),
			Message:   "failed to encode response",
			RequestID: types.GetRequestID(r.Context()),
		}})
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Error renders err as an APIErrorResponse. AppErrors keep their code,
// message and details; anything else becomes an opaque 500 so wrapped
// driver or upstream messages never reach the client.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	requestID := types.GetRequestID(r.Context())

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		JSON(w, r, http.StatusInternalServerError, APIErrorResponse{Error: ErrorDetail{
			Code:      string(types.ErrCodeInternalUnexpected),
			Message:   "an unexpected error occurred",
			RequestID: requestID,
		}})
		return
	}

	JSON(w, r, appErr.HTTPStatus(), APIErrorResponse{Error: ErrorDetail{
		Code:      string(appErr.Code),
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: requestID,
	}})
}

// DecodeJSON decodes a single JSON object from the request body into dst.
// Unknown fields, an empty body, trailing values and bodies over 1 MB are all
// rejected with validation_invalid_json.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return mapDecodeError(err)
	}
	if dec.More() {
		return types.NewAppError(types.ErrCodeValidationInvalidJSON,
			"request body must contain a single JSON object", nil)
	}
	return nil
}

func mapDecodeError(err error) *types.AppError {
	var (
		maxBytesErr   *http.MaxBytesError
		syntaxErr     *json.SyntaxError
		unmarshalErr  *json.UnmarshalTypeError
		code          = types.ErrCodeValidationInvalidJSON
		unknownPrefix = "json: unknown field "
	)

	switch {
	case errors.As(err, &maxBytesErr):
		return types.NewAppError(code, "request body must not exceed 1MB", err)
	case errors.As(err, &syntaxErr):
		return types.NewAppError(code, "malformed JSON in request body", err)
	case errors.As(err, &unmarshalErr):
		return types.NewAppErrorWithDetails(code, "invalid value for field", err, map[string]any{
			"field":    unmarshalErr.Field,
			"expected": unmarshalErr.Type.String(),
		})
	case strings.HasPrefix(err.Error(), unknownPrefix):
		return types.NewAppError(code,
			"unknown field in request body: "+strings.TrimPrefix(err.Error(), unknownPrefix), err)
	case errors.Is(err, io.EOF):
		return types.NewAppError(code, "request body must not be empty", err)
	default:
		return types.NewAppError(code, "invalid JSON in request body", err)
	}
}
