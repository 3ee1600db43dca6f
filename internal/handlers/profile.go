package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/memberwell/memberwell-backend/internal/auth"
	"github.com/memberwell/memberwell-backend/internal/middleware"
	"github.com/memberwell/memberwell-backend/internal/models"
	"github.com/memberwell/memberwell-backend/internal/store"
)

// Profile Completion Request
type ProfileUpdateBody struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type ProfileHandler struct {
	Profiles *store.ProfileStore
	Members  *store.MemberStore
}

// HandleGet returns the caller's profile. A missing profile row is answered
// with an empty, uncompleted shell: absence must not block access to the
// profile-completion page itself.
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	profile, err := h.Profiles.Get(r.Context(), sess.UserID)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	if profile == nil {
		profile = &models.Profile{ID: sess.UserID, Email: sess.Email}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"profile": profile,
	})
}

// HandleComplete fills in the profile and marks it (and the member's
// onboarding) completed.
func (h *ProfileHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	var req ProfileUpdateBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.FullName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"field":   "full_name",
			"message": "Full name is required",
		})
		return
	}

	sess := middleware.SessionFromContext(r.Context())
	member := middleware.MemberFromContext(r.Context())
	if member == nil {
		http.Error(w, "No member linked to this session", http.StatusForbidden)
		return
	}

	profile, err := h.Profiles.Get(r.Context(), sess.UserID)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	if profile == nil {
		profile = &models.Profile{ID: sess.UserID, Email: sess.Email}
		if err := h.Profiles.Create(r.Context(), profile); err != nil {
			writeAuthError(w, err)
			return
		}
	}

	profile.FullName = req.FullName
	profile.Phone = req.Phone
	profile.ProfileCompleted = true
	if err := h.Profiles.Update(r.Context(), profile); err != nil {
		writeAuthError(w, err)
		return
	}

	flags := member.CompletionFlags
	flags.ProfileCompleted = true
	flags.RegistrationCompleted = true
	if err := h.Members.SetFlags(r.Context(), member.ID, flags); err != nil {
		writeAuthError(w, err)
		return
	}
	member.CompletionFlags = flags

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Profile completed",
		"profile": profile,
		"state":   auth.StateFromFlags(flags),
	})
}
