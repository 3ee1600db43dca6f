package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/memberwell/memberwell-backend/internal/auth"
	"github.com/memberwell/memberwell-backend/internal/middleware"
)

// Login Request
type LoginRequest struct {
	MemberNumber string `json:"member_number"`
	Password     string `json:"password"`
}

// Change Password Request
type ChangePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

type AuthHandler struct {
	Login    *auth.LoginService
	Provider auth.Provider
}

// HandleLogin runs the full member login flow, bootstrap included.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.MemberNumber == "" || req.Password == "" {
		http.Error(w, "Member number and password are required", http.StatusBadRequest)
		return
	}

	result, err := h.Login.Login(r.Context(), req.MemberNumber, req.Password, bearerToken(r))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"message":        "Login successful",
		"token":          result.Session.Token,
		"member":         result.Member,
		"state":          result.State,
		"correlation_id": result.CorrelationID.String(),
	})
}

// HandleLogout clears the caller's session.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		h.Provider.SignOut(r.Context(), token)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out",
	})
}

// HandleMe returns the logged-in member and the derived account state.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	member := middleware.MemberFromContext(r.Context())
	if member == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"session": sess,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"session": sess,
		"member":  member,
		"state":   auth.StateFromFlags(member.CompletionFlags),
	})
}

// HandleChangePassword sets a new password for the logged-in member and
// returns a fresh session token.
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sess := middleware.SessionFromContext(r.Context())
	member := middleware.MemberFromContext(r.Context())
	if member == nil {
		http.Error(w, "No member linked to this session", http.StatusForbidden)
		return
	}

	fresh, err := h.Login.ChangePassword(r.Context(), sess, member, req.NewPassword)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	resp := map[string]interface{}{
		"success": true,
		"message": "Password changed",
		"state":   auth.StateFromFlags(member.CompletionFlags),
	}
	if fresh != nil {
		resp["token"] = fresh.Token
	}
	writeJSON(w, http.StatusOK, resp)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
