package handler

import (
	"errors"
	"hackathon_portal/internal/api/middleware"
	"hackathon_portal/internal/app/service"
	"hackathon_portal/internal/common"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type RegistrationHandler struct {
	registrationService *service.RegistrationService
	maxUploadBytes      int64
}

func NewRegistrationHandler(registrationService *service.RegistrationService, maxUploadBytes int64) *RegistrationHandler {
	return &RegistrationHandler{registrationService: registrationService, maxUploadBytes: maxUploadBytes}
}

// RegisterRoutes expects RequireParticipant in front of every route.
func (h *RegistrationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Get("/team", h.myTeam)
	r.Post("/team/files", h.uploadFile)
}

func (h *RegistrationHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID, _ := middleware.UserIDFromContext(r.Context())
	team, err := h.registrationService.Register(r.Context(), userID, req)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithData(w, http.StatusCreated, team)
}

func (h *RegistrationHandler) myTeam(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	team, err := h.registrationService.MyTeam(r.Context(), userID)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, team)
}

func (h *RegistrationHandler) uploadFile(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+(1<<20))
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			common.RespondWithError(w, http.StatusRequestEntityTooLarge, common.CodeValidation, "file is too large")
			return
		}
		common.RespondWithError(w, http.StatusBadRequest, common.CodeValidation, "file is required")
		return
	}
	defer file.Close()

	userID, _ := middleware.UserIDFromContext(r.Context())
	stored, err := h.registrationService.UploadFile(r.Context(), userID, service.UploadRequest{
		FileName: header.Filename,
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithData(w, http.StatusCreated, stored)
}
