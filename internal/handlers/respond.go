package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/memberwell/memberwell-backend/internal/auth"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeAuthError maps the auth error taxonomy to HTTP responses. Invalid
// credentials and token errors stay deliberately vague so the API leaks
// nothing about which part was wrong.
func writeAuthError(w http.ResponseWriter, err error) {
	var vErr *auth.ValidationError
	if errors.As(err, &vErr) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"field":   vErr.Field,
			"message": vErr.Message,
		})
		return
	}

	var rlErr *auth.RateLimitError
	if errors.As(err, &rlErr) {
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"success":     false,
			"message":     "Too many requests. Please try again later.",
			"retry_after": rlErr.RetryAfterSeconds,
		})
		return
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Check your member number and password",
		})
	case errors.Is(err, auth.ErrMemberSuspended):
		writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"success": false,
			"message": "This account is not available. Contact the association office.",
		})
	case errors.Is(err, auth.ErrInvalidToken):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "This link is expired or invalid. Please request a new one.",
		})
	case errors.Is(err, auth.ErrTransitionInFlight):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"success": false,
			"message": "An email change is already in progress. Wait for it to finish or fail.",
		})
	default:
		log.Printf("handler error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Something went wrong. Please try again.",
		})
	}
}
