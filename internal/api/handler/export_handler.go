package handler

import (
	"bytes"
	"hackathon_portal/internal/api/middleware"
	"hackathon_portal/internal/app/service"
	"hackathon_portal/internal/common"
	"hackathon_portal/internal/common/security"
	"log"
	"net/http"
	"net/url"
	"time"
)

type ExportHandler struct {
	teamService *service.TeamService
	baseURL     string
	linkTTL     time.Duration
}

func NewExportHandler(teamService *service.TeamService, baseURL string, linkTTL time.Duration) *ExportHandler {
	return &ExportHandler{teamService: teamService, baseURL: baseURL, linkTTL: linkTTL}
}

// ExportTeams responds with the filtered teams as CSV. The body is buffered so a failure
// midway still produces a JSON error instead of a truncated file.
func (h *ExportHandler) ExportTeams(w http.ResponseWriter, r *http.Request) {
	q := teamQuery(r)
	var buf bytes.Buffer
	rows, err := h.teamService.Export(r.Context(), &buf, q)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}

	admin, _ := middleware.AdminFromContext(r.Context())
	if admin != nil {
		log.Printf("INFO: Admin %s exported %d teams", admin.Email, rows)
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+h.teamService.ExportFileName(q)+`"`)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// CreateLink signs a short-lived download URL carrying the current filter.
func (h *ExportHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	admin, _ := middleware.AdminFromContext(r.Context())
	token, expiresAt, err := security.GenerateExportToken(admin.ID, h.linkTTL)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}

	params := url.Values{}
	for _, k := range []string{"track", "status", "search"} {
		if v := r.URL.Query().Get(k); v != "" {
			params.Set(k, v)
		}
	}
	params.Set("jwt", token)
	common.RespondWithData(w, http.StatusOK, map[string]interface{}{
		"url":        h.baseURL + "/api/admin/export/teams?" + params.Encode(),
		"expires_at": expiresAt,
	})
}
