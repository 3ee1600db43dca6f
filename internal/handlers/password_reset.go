package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/memberwell/memberwell-backend/internal/auth"
	"github.com/memberwell/memberwell-backend/pkg/clientip"
)

// Password Reset Request
type ResetRequestBody struct {
	MemberNumber string `json:"member_number"`
}

// Password Reset Completion
type ResetCompleteBody struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type PasswordResetHandler struct {
	Resets *auth.PasswordResetService
}

// HandleRequest starts a password reset. The public surface never reveals
// whether a member number exists; unknown numbers get the same answer as a
// dispatched email.
func (h *PasswordResetHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	var req ResetRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.Resets.RequestReset(r.Context(), req.MemberNumber, clientip.FromRequest(r))
	if err != nil {
		if errors.Is(err, auth.ErrMemberNotFound) {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success":               true,
				"requires_verification": false,
				"message":               "If the member number exists, a reset email has been sent.",
			})
			return
		}
		writeAuthError(w, err)
		return
	}

	message := "If the member number exists, a reset email has been sent."
	if result.RequiresVerification {
		message = "This account has no verified email address yet. Verify a personal email first."
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":               true,
		"requires_verification": result.RequiresVerification,
		"message":               message,
	})
}

// HandleComplete consumes a reset token and sets the new password.
func (h *PasswordResetHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	var req ResetCompleteBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Token == "" {
		http.Error(w, "Token is required", http.StatusBadRequest)
		return
	}

	if err := h.Resets.CompleteReset(r.Context(), req.Token, req.NewPassword); err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password has been reset. You can now log in with your new password.",
	})
}
