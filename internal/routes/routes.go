package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/memberwell/memberwell-backend/internal/handlers"
)

// Handlers bundles everything SetupRoutes mounts.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Resets      *handlers.PasswordResetHandler
	Transitions *handlers.EmailTransitionHandler
	Profile     *handlers.ProfileHandler
	Admin       *handlers.MemberAdminHandler
	Documents   *handlers.DocumentHandler

	RequireSession func(http.Handler) http.Handler
	RequireAdmin   func(http.Handler) http.Handler
}

func SetupRoutes(r *chi.Mux, h Handlers) {
	// Public auth surface
	r.Post("/api/auth/login", h.Auth.HandleLogin)
	r.Post("/api/auth/logout", h.Auth.HandleLogout)
	r.Post("/api/auth/password-reset/request", h.Resets.HandleRequest)
	r.Post("/api/auth/password-reset/complete", h.Resets.HandleComplete)

	// Email verification is clicked from a mailbox, no session required
	r.Post("/api/email-transition/verify", h.Transitions.HandleVerify)

	// Member surface (session required)
	r.Group(func(r chi.Router) {
		r.Use(h.RequireSession)

		r.Get("/api/auth/me", h.Auth.HandleMe)
		r.Post("/api/auth/password", h.Auth.HandleChangePassword)

		r.Get("/api/profile", h.Profile.HandleGet)
		r.Put("/api/profile", h.Profile.HandleComplete)

		r.Post("/api/email-transition/request", h.Transitions.HandleRequest)
		r.Get("/api/email-transition/status", h.Transitions.HandleStatus)

		r.Post("/api/documents", h.Documents.HandleUpload)
		r.Get("/api/documents", h.Documents.HandleList)
	})

	// Admin surface
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAdmin)

		r.Get("/api/admin/members", h.Admin.HandleList)
		r.Post("/api/admin/members", h.Admin.HandleCreate)
		r.Put("/api/admin/members/status", h.Admin.HandleSetStatus)
		r.Post("/api/admin/members/reset", h.Admin.HandleFactoryReset)
	})
}
