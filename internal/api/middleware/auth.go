package middleware

import (
	"context"
	"hackathon_portal/internal/common"
	"hackathon_portal/internal/common/security"
	"hackathon_portal/internal/domain/model"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const (
	AdminCtxKey  contextKey = "admin"
	UserIDCtxKey contextKey = "userID"
)

const (
	AdminCookieName   = "admin_token"
	SessionUserIDKey  = "userID"
	exportTokenParam  = "jwt"
	bearerTokenPrefix = "Bearer "
)

// AdminAuthenticator resolves admin identities for the admin middlewares.
type AdminAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Admin, error)
	AdminByID(ctx context.Context, id string) (*model.Admin, error)
}

// AdminToken reads the admin session token from the admin_token cookie, or
// from an Authorization bearer header for API clients.
func AdminToken(r *http.Request) string {
	if c, err := r.Cookie(AdminCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearerTokenPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, bearerTokenPrefix))
	}
	return ""
}

func RequireAdmin(auth AdminAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin, err := auth.Authenticate(r.Context(), AdminToken(r))
			if err != nil {
				common.RespondWithAppError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), AdminCtxKey, admin)))
		})
	}
}

// RequirePermission must run after RequireAdmin or ExportAccess.
func RequirePermission(p model.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin, ok := AdminFromContext(r.Context())
			if !ok {
				common.RespondWithAppError(w, common.ErrUnauthorized)
				return
			}
			if !admin.Role.Can(p) {
				common.RespondWithAppError(w, common.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ExportAccess admits either a signed export link (?jwt=..., verified
// upstream by jwtauth.Verify) or a regular admin session.
func ExportAccess(auth AdminAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get(exportTokenParam) == "" {
				RequireAdmin(auth)(next).ServeHTTP(w, r)
				return
			}

			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				common.RespondWithError(w, http.StatusUnauthorized, common.CodeUnauthorized, "Export link is invalid or has expired")
				return
			}
			if scope, err := security.GetScopeFromClaims(claims); err != nil || scope != security.ExportScope {
				common.RespondWithError(w, http.StatusUnauthorized, common.CodeUnauthorized, "Export link is invalid or has expired")
				return
			}
			adminID, err := security.GetSubjectFromClaims(claims)
			if err != nil {
				common.RespondWithError(w, http.StatusUnauthorized, common.CodeUnauthorized, "Export link is invalid or has expired")
				return
			}
			admin, err := auth.AdminByID(r.Context(), adminID)
			if err != nil {
				common.RespondWithAppError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), AdminCtxKey, admin)))
		})
	}
}

// RequireParticipant needs the scs LoadAndSave middleware in front of it.
func RequireParticipant(sessions *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sessions.GetString(r.Context(), SessionUserIDKey)
			if userID == "" {
				common.RespondWithAppError(w, common.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserIDCtxKey, userID)))
		})
	}
}

func AdminFromContext(ctx context.Context) (*model.Admin, bool) {
	admin, ok := ctx.Value(AdminCtxKey).(*model.Admin)
	return admin, ok && admin != nil
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDCtxKey).(string)
	return userID, ok && userID != ""
}
