package web

import (
	"encoding/json"
	"net/http"

	"github.com/opoerator/drophub/internal/errors"
)

// renderError writes err as a JSON error payload.
// Internal error messages are replaced with a generic one.
func renderError(w http.ResponseWriter, err error) {
	hubErr, ok := errors.As(err)
	if !ok {
		hubErr = errors.NewInternal(err)
	}

	message := hubErr.Message
	if hubErr.Code == errors.ErrInternal {
		message = "an internal error occurred"
	}

	renderJSON(w, hubErr.Status, map[string]any{
		"error": map[string]any{
			"code":    string(hubErr.Code),
			"message": message,
			"status":  hubErr.Status,
		},
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
