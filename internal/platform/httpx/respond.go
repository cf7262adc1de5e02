// Package httpx provides the JSON response envelope shared by all API
// handlers: {success, data, message?} plus pagination metadata on lists.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/procura-hq/procura/internal/shared"
)

// Envelope is the standard single-resource response body.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ListEnvelope is the response body for paginated listings.
type ListEnvelope struct {
	Success    bool   `json:"success"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	TotalPages int    `json:"totalPages"`
	Message    string `json:"message,omitempty"`
	Data       any    `json:"data"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// OK sends a success envelope.
func OK(w http.ResponseWriter, status int, data any, message string) {
	JSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// List sends a success envelope with pagination metadata.
func List(w http.ResponseWriter, data any, p shared.Pagination) {
	JSON(w, http.StatusOK, ListEnvelope{
		Success:    true,
		Total:      p.Total,
		Page:       p.Page,
		TotalPages: p.TotalPages,
		Data:       data,
	})
}

// Error maps an error to its HTTP status and sends a failure envelope.
// Validation errors map to 400, missing records to 404, unique-field
// duplicates to 409; everything else is a 500 with a generic message.
func Error(w http.ResponseWriter, err error) {
	JSON(w, StatusFor(err), Envelope{Success: false, Message: shared.UserSafeMessage(err)})
}

// StatusFor resolves the HTTP status code for an error.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON decodes the request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
