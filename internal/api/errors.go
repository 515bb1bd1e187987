package api

import (
	"encoding/json"
	"net/http"

	"github.com/cognee-ai/cognee-go/internal/types"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// httpStatus maps typed error codes to HTTP statuses.
func httpStatus(err error) int {
	switch types.CodeOf(err) {
	case types.ErrCodeNotFound:
		return http.StatusNotFound
	case types.ErrCodePermissionDenied:
		return http.StatusForbidden
	case types.ErrCodeConflict:
		return http.StatusConflict
	case types.ErrCodeValidation:
		return http.StatusBadRequest
	case types.ErrCodeCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends the structured error body for err.
func writeError(w http.ResponseWriter, err error) {
	status := httpStatus(err)
	code := string(types.CodeOf(err))
	if code == "" {
		code = string(types.ErrCodeInternal)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Code: code, Message: err.Error()})
}

// writeJSON sends a success payload.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
