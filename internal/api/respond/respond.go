package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mybiom/biom/internal/model"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error    string                   `json:"error"`
	Code     int                      `json:"code"`
	Message  string                   `json:"message,omitempty"`
	Failures []model.AttributeFailure `json:"failures,omitempty"`
	Rejected []string                 `json:"rejected,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteError writes a standardized error response
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    statusCode,
		Message: message,
	})
}

// WriteBadRequest writes a 400 Bad Request response
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// WriteNotFound writes a 404 Not Found response
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

// WriteInternalError writes a 500 Internal Server Error response
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case model.IsValidationError(err):
		return http.StatusBadRequest
	case model.IsNotFoundError(err):
		return http.StatusNotFound
	case model.IsConflictError(err):
		return http.StatusConflict
	case model.IsStorageError(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteServiceError writes err with the status StatusFor picks. Rejected
// attribute batches carry their per-attribute failures. Storage and unknown
// errors are logged and their detail is not exposed.
func WriteServiceError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	resp := ErrorResponse{Error: http.StatusText(status), Code: status, Message: err.Error()}

	var batch *model.BatchError
	if errors.As(err, &batch) {
		resp.Failures = batch.Failures
		resp.Rejected = batch.Rejected
	}
	if status >= http.StatusInternalServerError {
		log.Error().Stack().Err(err).Int("status", status).Msg("request failed")
		if status == http.StatusServiceUnavailable {
			resp.Message = "storage unavailable, retry later"
		} else {
			resp.Message = "internal error"
		}
	}
	WriteJSON(w, status, resp)
}
