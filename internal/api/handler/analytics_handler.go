package handler

import (
	"hackathon_portal/internal/api/middleware"
	"hackathon_portal/internal/app/service"
	"hackathon_portal/internal/common"
	"hackathon_portal/internal/domain/model"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

func (h *AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(model.PermViewAnalytics)).Get("/analytics", h.report)
}

func (h *AnalyticsHandler) report(w http.ResponseWriter, r *http.Request) {
	track, err := trackParam(r)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	report, err := h.analyticsService.Report(r.Context(), track)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, report)
}
