// internal/handler/errors.go
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/SyedDaiam9101/leaf-classifier/internal/pipeline"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps a pipeline error to an HTTP status code
func statusFor(err error) int {
	switch pipeline.ErrorKind(err) {
	case "invalid_category", "decode":
		return http.StatusBadRequest
	case "canceled":
		// client went away; nobody reads this
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage returns the client-facing message for err
func errorMessage(err error) string {
	switch pipeline.ErrorKind(err) {
	case "invalid_category":
		return "Invalid model type"
	default:
		return err.Error()
	}
}

// writeJSONError writes a consistent JSON error payload
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
