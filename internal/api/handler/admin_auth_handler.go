package handler

import (
	"hackathon_portal/internal/api/middleware"
	"hackathon_portal/internal/app/service"
	"hackathon_portal/internal/common"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type AdminAuthHandler struct {
	authService  *service.AdminAuthService
	secureCookie bool
}

func NewAdminAuthHandler(authService *service.AdminAuthService, secureCookie bool) *AdminAuthHandler {
	return &AdminAuthHandler{authService: authService, secureCookie: secureCookie}
}

func (h *AdminAuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.With(middleware.RequireAdmin(h.authService)).Get("/me", h.me)
}

func (h *AdminAuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.AdminLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.authService.Login(r.Context(), req, clientIP(r), r.UserAgent())
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	http.SetCookie(w, h.cookie(res.Token, res.ExpiresAt))
	common.RespondWithData(w, http.StatusOK, res)
}

// logout clears the cookie even when the session could not be deleted.
func (h *AdminAuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), middleware.AdminToken(r)); err != nil {
		log.Printf("WARN: Admin logout: %v", err)
	}
	expired := h.cookie("", time.Unix(0, 0))
	expired.MaxAge = -1
	http.SetCookie(w, expired)
	common.RespondWithMessage(w, http.StatusOK, "Logged out")
}

func (h *AdminAuthHandler) me(w http.ResponseWriter, r *http.Request) {
	admin, _ := middleware.AdminFromContext(r.Context())
	common.RespondWithData(w, http.StatusOK, map[string]interface{}{
		"admin":       admin,
		"permissions": permissionsOf(admin),
	})
}

func (h *AdminAuthHandler) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.AdminCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	}
}
