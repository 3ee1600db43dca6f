package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/memberwell/memberwell-backend/internal/auth"
	"github.com/memberwell/memberwell-backend/internal/models"
	"github.com/memberwell/memberwell-backend/internal/store"
)

// Member Import Request
type MemberCreateBody struct {
	MemberNumber string `json:"member_number"`
	FullName     string `json:"full_name"`
	Phone        string `json:"phone,omitempty"`
	Collector    string `json:"collector,omitempty"`
}

// Member Status Update Request
type MemberStatusBody struct {
	MemberNumber string `json:"member_number"`
	Status       string `json:"status"`
}

// Factory Reset Request
type MemberResetBody struct {
	MemberNumber string `json:"member_number"`
}

// MemberAdminHandler is the admin surface. Unlike the public endpoints it
// reports "member not found" distinctly: admins already know the roster.
type MemberAdminHandler struct {
	Members  *store.MemberStore
	Provider auth.Provider
	Audit    auth.Auditor
}

// HandleList lists members, optionally filtered by status.
func (h *MemberAdminHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	members, err := h.Members.List(r.Context(), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"members": members,
		"count":   len(members),
	})
}

// HandleCreate imports a new member in the pre-login state with a generated
// placeholder email. The member number doubles as the initial password.
func (h *MemberAdminHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req MemberCreateBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.FullName == "" {
		http.Error(w, "Full name is required", http.StatusBadRequest)
		return
	}

	number := auth.NormalizeMemberNumber(req.MemberNumber)
	if err := auth.ValidateMemberNumber(number); err != nil {
		writeAuthError(w, err)
		return
	}

	member := &models.Member{
		ID:           uuid.New(),
		MemberNumber: number,
		FullName:     req.FullName,
		Email:        auth.PlaceholderEmail(number),
		Phone:        req.Phone,
		Status:       models.MemberStatusActive,
		Collector:    req.Collector,
		CompletionFlags: models.CompletionFlags{
			FirstTimeLogin: true,
		},
	}
	if err := h.Members.Create(r.Context(), member); err != nil {
		writeAuthError(w, err)
		return
	}

	h.Audit.Record(r.Context(), &models.AuditEntry{
		Operation:     "member_created",
		TableName:     "members",
		RecordID:      member.ID.String(),
		Severity:      models.SeverityInfo,
		CorrelationID: uuid.New(),
		Metadata:      map[string]string{"member_number": number},
	})

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Member created. Initial password is the member number.",
		"member":  member,
	})
}

// HandleSetStatus updates a member's status.
func (h *MemberAdminHandler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req MemberStatusBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	switch req.Status {
	case models.MemberStatusActive, models.MemberStatusInactive, models.MemberStatusPending,
		models.MemberStatusSuspended, models.MemberStatusDeceased:
	default:
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}

	member, err := h.lookup(w, r, req.MemberNumber)
	if member == nil {
		return
	}

	old := member.Status
	if err = h.Members.SetStatus(r.Context(), member.ID, req.Status); err != nil {
		writeAuthError(w, err)
		return
	}

	h.Audit.Record(r.Context(), &models.AuditEntry{
		Operation:     "member_status_changed",
		TableName:     "members",
		RecordID:      member.ID.String(),
		Severity:      models.SeverityWarning,
		CorrelationID: uuid.New(),
		Metadata: map[string]string{
			"member_number": member.MemberNumber,
			"old_status":    old,
			"new_status":    req.Status,
		},
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Status updated",
	})
}

// HandleFactoryReset returns a member to the pre-first-login state: the auth
// account and its sessions are deleted, the linkage and all completion flags
// are cleared, and the placeholder email is restored.
func (h *MemberAdminHandler) HandleFactoryReset(w http.ResponseWriter, r *http.Request) {
	var req MemberResetBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	member, _ := h.lookup(w, r, req.MemberNumber)
	if member == nil {
		return
	}

	if member.AuthUserID != nil {
		if err := h.Provider.DeleteAccount(r.Context(), *member.AuthUserID); err != nil {
			writeAuthError(w, err)
			return
		}
	}
	if err := h.Members.FactoryReset(r.Context(), member.ID, auth.PlaceholderEmail(member.MemberNumber)); err != nil {
		writeAuthError(w, err)
		return
	}

	h.Audit.Record(r.Context(), &models.AuditEntry{
		Operation:     "member_factory_reset",
		TableName:     "members",
		RecordID:      member.ID.String(),
		Severity:      models.SeverityCritical,
		CorrelationID: uuid.New(),
		Metadata:      map[string]string{"member_number": member.MemberNumber},
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Member reset to factory settings. The next login bootstraps a fresh account.",
	})
}

func (h *MemberAdminHandler) lookup(w http.ResponseWriter, r *http.Request, rawNumber string) (*models.Member, error) {
	number := auth.NormalizeMemberNumber(rawNumber)
	if err := auth.ValidateMemberNumber(number); err != nil {
		writeAuthError(w, err)
		return nil, err
	}

	member, err := h.Members.GetByNumber(r.Context(), number)
	if err != nil {
		if errors.Is(err, auth.ErrMemberNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{
				"success": false,
				"message": "No member with number " + number,
			})
			return nil, err
		}
		writeAuthError(w, err)
		return nil, err
	}
	return member, nil
}
