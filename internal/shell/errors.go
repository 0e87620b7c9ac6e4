package shell

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/driftwatch/console-core/internal/auth"
	"github.com/driftwatch/console-core/internal/backend"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeUpstream     = "upstream_error"
	ErrCodeInternal     = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeSessionError maps session and backend errors to HTTP responses.
// Backend errors pass through with their original status and code so the
// UI can distinguish bad credentials from an unreachable backend.
func writeSessionError(w http.ResponseWriter, err error) {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.Code
		if code == "" {
			code = ErrCodeUpstream
		}
		writeError(w, apiErr.Status, code, apiErr.Detail)
		return
	}

	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		writeUnauthorized(w, "not authenticated")
	case errors.Is(err, auth.ErrNoRefreshToken):
		writeError(w, http.StatusConflict, "no_refresh_token", "session has no refresh token")
	case errors.Is(err, auth.ErrInvalidRole):
		writeBadRequest(w, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
