package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"realestate-payments/internal/domain"
)

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor is the one place domain errors become HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrLocked):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError hides internal error text from clients on 5xx.
func writeError(w http.ResponseWriter, err error) int {
	code := statusFor(err)
	msg := err.Error()
	switch code {
	case http.StatusInternalServerError:
		msg = "internal error"
	case http.StatusNotFound:
		msg = "not found"
	case http.StatusUnauthorized:
		msg = "unauthorized"
	case http.StatusConflict:
		msg = "resource busy, retry later"
	}
	writeJSON(w, code, errorBody{Error: msg})
	return code
}

// flexID accepts an identifier sent either as a JSON string or a JSON number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}
