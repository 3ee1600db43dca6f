package handlers

import (
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/memberwell/memberwell-backend/internal/middleware"
	"github.com/memberwell/memberwell-backend/internal/models"
	"github.com/memberwell/memberwell-backend/internal/services"
	"github.com/memberwell/memberwell-backend/internal/store"
)

type DocumentHandler struct {
	Uploads   *services.DocumentService
	Documents *store.DocumentStore
}

// HandleUpload stores a document for the logged-in member (max 10MB).
func (h *DocumentHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	member := middleware.MemberFromContext(r.Context())
	if member == nil {
		http.Error(w, "No member linked to this session", http.StatusForbidden)
		return
	}
	if h.Uploads == nil {
		http.Error(w, "File upload service not available", http.StatusServiceUnavailable)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "A file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	url, err := h.Uploads.Upload(r.Context(), file, member.MemberNumber)
	if err != nil {
		log.Printf("document upload for %s: %v", member.MemberNumber, err)
		http.Error(w, "Failed to upload document", http.StatusInternalServerError)
		return
	}

	doc := &models.MemberDocument{
		ID:           uuid.New(),
		MemberNumber: member.MemberNumber,
		FileName:     header.Filename,
		URL:          url,
		SizeBytes:    header.Size,
	}
	if err := h.Documents.Create(r.Context(), doc); err != nil {
		log.Printf("document metadata for %s: %v", member.MemberNumber, err)
		http.Error(w, "Failed to record document", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"document": doc,
	})
}

// HandleList returns the member's own documents.
func (h *DocumentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	member := middleware.MemberFromContext(r.Context())
	if member == nil {
		http.Error(w, "No member linked to this session", http.StatusForbidden)
		return
	}

	docs, err := h.Documents.ListByMember(r.Context(), member.MemberNumber)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"documents": docs,
	})
}
