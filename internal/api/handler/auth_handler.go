package handler

import (
	"hackathon_portal/internal/api/middleware"
	"hackathon_portal/internal/app/service"
	"hackathon_portal/internal/common"
	"log"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
)

// AuthHandler serves participant OTP sign-in. The session token only ever
// travels in the session_token cookie managed by scs.
type AuthHandler struct {
	otpService *service.OtpService
	sessions   *scs.SessionManager
}

func NewAuthHandler(otpService *service.OtpService, sessions *scs.SessionManager) *AuthHandler {
	return &AuthHandler{otpService: otpService, sessions: sessions}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/send-otp", h.sendOTP)
	r.Post("/verify-otp", h.verifyOTP)
	r.Post("/logout", h.logout)
	r.With(middleware.RequireParticipant(h.sessions)).Get("/me", h.me)
}

func (h *AuthHandler) sendOTP(w http.ResponseWriter, r *http.Request) {
	var req service.SendOtpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.otpService.Send(r.Context(), req, clientIP(r))
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	rl := res.RateLimit
	common.SetRateLimitHeaders(w, rl.Limit, rl.Remaining, rl.ResetAt, time.Now())
	common.RespondWithJSON(w, http.StatusOK, common.SuccessResponse{
		Success: true,
		Message: "Verification code sent",
		Data:    res,
	})
}

func (h *AuthHandler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req service.VerifyOtpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.otpService.Verify(r.Context(), req)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}

	// Renew the token on privilege change to prevent session fixation.
	if err := h.sessions.RenewToken(r.Context()); err != nil {
		log.Printf("ERROR: Failed to renew session token: %v", err)
		common.RespondWithAppError(w, common.ErrInternalServer)
		return
	}
	h.sessions.Put(r.Context(), middleware.SessionUserIDKey, user.ID)
	common.RespondWithData(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context()); err != nil {
		log.Printf("WARN: Failed to destroy participant session: %v", err)
	}
	common.RespondWithMessage(w, http.StatusOK, "Logged out")
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	user, err := h.otpService.CurrentUser(r.Context(), userID)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, map[string]interface{}{"user": user})
}
