package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/scenicworks/renderqa/internal/records"
)

// ErrorResponse is the error response returned to API clients.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// writeJSON writes a success JSON response.
func writeJSON(w http.ResponseWriter, statusCode int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// writeError writes an error JSON response.
func writeError(w http.ResponseWriter, statusCode int, errorCode, message string, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorCode,
		Message: message,
		Details: details,
	})
}

// decodeBody reads a size-capped JSON request body into dst, writing the
// appropriate error response itself. Returns false when the request was
// rejected.
func decodeBody(w http.ResponseWriter, r *http.Request, maxBody int64, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request_too_large",
				fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBody), nil)
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_request",
			"Failed to read request body", nil)
		return false
	}

	if unmarshalErr := json.Unmarshal(body, dst); unmarshalErr != nil {
		writeError(w, http.StatusBadRequest, "invalid_json",
			"Failed to parse JSON request body",
			map[string]string{"parse_error": unmarshalErr.Error()})
		return false
	}
	return true
}

// writeRepositoryError maps storage errors onto API status codes.
func writeRepositoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, records.ErrReviewNotFound):
		writeError(w, http.StatusNotFound, "review_not_found", "No review with that ID", nil)
	case errors.Is(err, records.ErrRenderNotFound):
		writeError(w, http.StatusNotFound, "render_not_found", "No render with that ID", nil)
	case errors.Is(err, records.ErrReviewConflict):
		writeError(w, http.StatusConflict, "review_conflict",
			"Review has already been decided", nil)
	case errors.Is(err, records.ErrDatabaseUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable",
			"Storage is temporarily unavailable", nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error",
			"Request could not be processed", nil)
	}
}
