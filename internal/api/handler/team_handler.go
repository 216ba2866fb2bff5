package handler

import (
	"hackathon_portal/internal/api/middleware"
	"hackathon_portal/internal/app/service"
	"hackathon_portal/internal/common"
	"hackathon_portal/internal/domain/model"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type TeamHandler struct {
	teamService *service.TeamService
}

func NewTeamHandler(teamService *service.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// RegisterRoutes mounts /teams and /stats; RequireAdmin must already be in
// the chain.
func (h *TeamHandler) RegisterRoutes(r chi.Router) {
	view := r.With(middleware.RequirePermission(model.PermViewTeams))
	view.Get("/teams", h.list)
	view.Get("/teams/{id}", h.get)
	view.Get("/stats", h.stats)
	r.With(middleware.RequirePermission(model.PermManageTeams)).Patch("/teams/{id}/status", h.updateStatus)
	r.With(middleware.RequirePermission(model.PermDeleteTeams)).Delete("/teams/{id}", h.delete)
}

func teamQuery(r *http.Request) service.TeamQuery {
	q := r.URL.Query()
	return service.TeamQuery{
		Status: q.Get("status"),
		Track:  q.Get("track"),
		Search: q.Get("search"),
		Page:   intParam(r, "page"),
		Limit:  intParam(r, "limit"),
	}
}

func (h *TeamHandler) list(w http.ResponseWriter, r *http.Request) {
	page, err := h.teamService.List(r.Context(), teamQuery(r))
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, page)
}

func (h *TeamHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	team, err := h.teamService.Get(r.Context(), id)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, team)
}

func (h *TeamHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req service.StatusUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	admin, _ := middleware.AdminFromContext(r.Context())
	team, err := h.teamService.UpdateStatus(r.Context(), id, req, admin)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, team)
}

func (h *TeamHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.teamService.Delete(r.Context(), id); err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithMessage(w, http.StatusOK, "Team deleted")
}

func (h *TeamHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.teamService.Stats(r.Context())
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, stats)
}
