// Package handler contains the HTTP layer: request decoding, response
// encoding, and the translation of domain errors into status codes. No
// business rules live here.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zackriver/carvalue/internal/apperror"
)

// Envelope is the shape of every API response, success or failure. Data
// is always present — an empty object rather than null — so clients can
// unmarshal without nil checks.
type Envelope struct {
	Success bool   `json:"success"`
	Action  string `json:"action"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// writeJSON writes the envelope with the given status. Encoding failures
// can only happen after the header is sent, so they are logged and
// swallowed.
func writeJSON(w http.ResponseWriter, status int, envelope Envelope) {
	if envelope.Data == nil {
		envelope.Data = struct{}{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeData writes a success envelope.
func writeData(w http.ResponseWriter, status int, action, message string, data any) {
	writeJSON(w, status, Envelope{
		Success: true,
		Action:  action,
		Message: message,
		Data:    data,
	})
}

// writeError maps a domain error to a status code and writes a failure
// envelope.
//
// The mapping is deliberately coarse: 403 for both "not logged in" and
// "not allowed", 404 for missing resources, 400 for bad input, 409 for
// conflicts, and a sanitized 500 for everything else. Internal details
// (SQL text, file paths) go to the log, never to the client.
func writeError(w http.ResponseWriter, action string, err error) {
	var status int
	var message string

	switch {
	case errors.Is(err, apperror.ErrUnauthorized), errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
		message = apperror.Message(err)
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
		message = apperror.Message(err)
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
		message = apperror.Message(err)
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
		message = apperror.Message(err)
	default:
		status = http.StatusInternalServerError
		message = "something went wrong"
		slog.Error("internal error",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}

	writeJSON(w, status, Envelope{
		Success: false,
		Action:  action,
		Message: message,
	})
}

// decodeBody parses a JSON request body into dst, returning a validation
// error the caller can hand straight to writeError.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "request body must be valid JSON")
	}
	return nil
}
