// Package httputil holds the JSON response helpers shared by all handlers.
package httputil

import (
	"encoding/json"
	"net/http"

	domainerrors "keystone/pkg/domain-errors"
)

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError maps an error to its HTTP status and a stable error code.
// Internal errors omit the description so infrastructure details never
// leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := domainerrors.CodeOf(err)
	resp := errorResponse{Error: string(code)}
	if code != domainerrors.CodeInternal {
		resp.Description = err.Error()
	}
	WriteJSON(w, domainerrors.ToHTTPStatus(code), resp)
}

// Decode parses the JSON request body into T. On failure it writes a
// validation error response and returns false.
func Decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var body T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		WriteError(w, domainerrors.Wrap(err, domainerrors.CodeValidation, "invalid request body"))
		return body, false
	}
	return body, true
}
