package handler

import (
	"hackathon_portal/internal/api/middleware"
	"hackathon_portal/internal/app/service"
	"hackathon_portal/internal/common"
	"hackathon_portal/internal/domain/model"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type JudgeHandler struct {
	judgingService *service.JudgingService
}

func NewJudgeHandler(judgingService *service.JudgingService) *JudgeHandler {
	return &JudgeHandler{judgingService: judgingService}
}

func (h *JudgeHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.RequirePermission(model.PermScoreSubmissions))
	r.Get("/teams", h.listTeams)
	r.Get("/teams/{id}", h.getTeam)
	r.Post("/teams/{id}/scores", h.submitScores)
}

func (h *JudgeHandler) listTeams(w http.ResponseWriter, r *http.Request) {
	track, err := trackParam(r)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	judge, _ := middleware.AdminFromContext(r.Context())
	teams, err := h.judgingService.ListTeams(r.Context(), judge, track)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, teams)
}

func (h *JudgeHandler) getTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	judge, _ := middleware.AdminFromContext(r.Context())
	detail, err := h.judgingService.GetTeam(r.Context(), judge, id)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, detail)
}

func (h *JudgeHandler) submitScores(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req service.SubmitScoresRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	judge, _ := middleware.AdminFromContext(r.Context())
	res, err := h.judgingService.SubmitScores(r.Context(), judge, id, req)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, res)
}
