package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/memberwell/memberwell-backend/internal/auth"
	"github.com/memberwell/memberwell-backend/internal/models"
	"github.com/memberwell/memberwell-backend/internal/store"
)

type contextKey string

const (
	sessionKey contextKey = "session"
	memberKey  contextKey = "member"
)

// RequireSession validates the bearer token and loads the linked member into
// the request context.
func RequireSession(provider auth.Provider, members *store.MemberStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			sess, err := provider.GetSession(r.Context(), token)
			if err != nil {
				http.Error(w, "Session check failed", http.StatusInternalServerError)
				return
			}
			if sess == nil {
				http.Error(w, "Session expired or invalid", http.StatusUnauthorized)
				return
			}

			member, err := members.GetByAuthUserID(r.Context(), sess.UserID)
			if err != nil && !errors.Is(err, auth.ErrMemberNotFound) {
				http.Error(w, "Member lookup failed", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			if member != nil {
				ctx = context.WithValue(ctx, memberKey, member)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin guards the admin surface with the shared admin key.
func RequireAdmin(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-Admin-Key")
			if adminKey == "" || subtle.ConstantTimeCompare([]byte(got), []byte(adminKey)) != 1 {
				http.Error(w, "Admin access required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext returns the session stored by RequireSession.
func SessionFromContext(ctx context.Context) *auth.Session {
	sess, _ := ctx.Value(sessionKey).(*auth.Session)
	return sess
}

// MemberFromContext returns the member stored by RequireSession, or nil when
// the session's account has no linked member row.
func MemberFromContext(ctx context.Context) *models.Member {
	member, _ := ctx.Value(memberKey).(*models.Member)
	return member
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
