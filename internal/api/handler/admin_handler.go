package handler

import (
	"hackathon_portal/internal/api/middleware"
	"hackathon_portal/internal/app/service"
	"hackathon_portal/internal/common"
	"hackathon_portal/internal/domain/model"
	"net/http"

	"github.com/go-chi/chi/v5"
)

var allPermissions = []model.Permission{
	model.PermViewTeams, model.PermManageTeams, model.PermDeleteTeams, model.PermExportData,
	model.PermViewAnalytics, model.PermScoreSubmissions, model.PermManageCriteria, model.PermManageAdmins,
}

func permissionsOf(admin *model.Admin) []model.Permission {
	perms := []model.Permission{}
	if admin == nil {
		return perms
	}
	for _, p := range allPermissions {
		if admin.Role.Can(p) {
			perms = append(perms, p)
		}
	}
	return perms
}

type AdminHandler struct {
	adminService *service.AdminService
}

func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.RequirePermission(model.PermManageAdmins))
	r.Get("/", h.list)
	r.Post("/", h.create)
}

func (h *AdminHandler) list(w http.ResponseWriter, r *http.Request) {
	admins, err := h.adminService.List(r.Context())
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, admins)
}

func (h *AdminHandler) create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateAdminRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	admin, err := h.adminService.Create(r.Context(), req)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithData(w, http.StatusCreated, admin)
}
