// Package shared holds the JSON envelope helpers every handler uses.
package shared

import (
	"encoding/json"
	"net/http"

	pkgerrors "attest/pkg/domain-errors"
)

// Response is the envelope the API returns on every route.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// WriteJSON writes a success envelope.
func WriteJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Success: true, Message: message, Data: data})
}

// WriteError maps a domain error to its HTTP status and writes a failure
// envelope. Internal details are not echoed to clients.
func WriteError(w http.ResponseWriter, err error) {
	status := pkgerrors.HTTPStatus(err)
	message := "internal server error"
	if status != http.StatusInternalServerError {
		message = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{
		Success: false,
		Message: message,
		Field:   pkgerrors.FieldOf(err),
	})
}
