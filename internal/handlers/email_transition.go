package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/memberwell/memberwell-backend/internal/auth"
	"github.com/memberwell/memberwell-backend/internal/middleware"
)

// Email Transition Request
type TransitionRequestBody struct {
	NewEmail string `json:"new_email"`
}

// Email Transition Verification
type TransitionVerifyBody struct {
	Token string `json:"token"`
}

type EmailTransitionHandler struct {
	Transitions *auth.EmailTransitionService
}

// HandleRequest opens an email transition for the logged-in member.
func (h *EmailTransitionHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	member := middleware.MemberFromContext(r.Context())
	if member == nil {
		http.Error(w, "No member linked to this session", http.StatusForbidden)
		return
	}

	t, err := h.Transitions.Request(r.Context(), member, req.NewEmail)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"message":    "Verification email sent to " + t.NewEmail,
		"transition": t,
	})
}

// HandleVerify consumes a verification token from the emailed link. No
// session required: the member clicks from their mailbox.
func (h *EmailTransitionHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req TransitionVerifyBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Token == "" {
		http.Error(w, "Token is required", http.StatusBadRequest)
		return
	}

	t, err := h.Transitions.Verify(r.Context(), req.Token)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Email address verified. Use it to log in from now on.",
		"transition": t,
	})
}

// HandleStatus returns the member's latest transition so the UI knows
// whether to offer a new request.
func (h *EmailTransitionHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	member := middleware.MemberFromContext(r.Context())
	if member == nil {
		http.Error(w, "No member linked to this session", http.StatusForbidden)
		return
	}

	t, err := h.Transitions.Latest(r.Context(), member.MemberNumber)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	resp := map[string]interface{}{
		"success":   true,
		"in_flight": t != nil && t.Active(),
	}
	if t != nil {
		resp["transition"] = t
	}
	writeJSON(w, http.StatusOK, resp)
}
