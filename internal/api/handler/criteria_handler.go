package handler

import (
	"hackathon_portal/internal/api/middleware"
	"hackathon_portal/internal/app/service"
	"hackathon_portal/internal/common"
	"hackathon_portal/internal/domain/model"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type CriteriaHandler struct {
	criteriaService *service.CriteriaService
}

func NewCriteriaHandler(criteriaService *service.CriteriaService) *CriteriaHandler {
	return &CriteriaHandler{criteriaService: criteriaService}
}

func (h *CriteriaHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(model.PermViewTeams)).Get("/", h.list)
	r.With(middleware.RequirePermission(model.PermManageCriteria)).Put("/{track}", h.replace)
}

func (h *CriteriaHandler) list(w http.ResponseWriter, r *http.Request) {
	track, err := trackParam(r)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	activeOnly := r.URL.Query().Get("include_inactive") != "true"
	criteria, err := h.criteriaService.List(r.Context(), track, activeOnly)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, criteria)
}

type replaceCriteriaRequest struct {
	Criteria []service.CriterionInput `json:"criteria"`
}

func (h *CriteriaHandler) replace(w http.ResponseWriter, r *http.Request) {
	track, ok := model.ParseTrack(chi.URLParam(r, "track"))
	if !ok {
		common.RespondWithAppError(w, common.Validationf("track %q is not a valid track", chi.URLParam(r, "track")))
		return
	}
	var req replaceCriteriaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	criteria, err := h.criteriaService.Replace(r.Context(), track, req.Criteria)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, criteria)
}
