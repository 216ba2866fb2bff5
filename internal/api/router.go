package api

import (
	"hackathon_portal/internal/api/handler"
	"hackathon_portal/internal/api/middleware"
	"hackathon_portal/internal/app/service"
	"hackathon_portal/internal/common"
	"hackathon_portal/internal/common/security"
	"hackathon_portal/internal/domain/model"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
)

type Services struct {
	Otp          *service.OtpService
	AdminAuth    *service.AdminAuthService
	Registration *service.RegistrationService
	Teams        *service.TeamService
	Criteria     *service.CriteriaService
	Judging      *service.JudgingService
	Analytics    *service.AnalyticsService
	Admins       *service.AdminService
}

type Options struct {
	AllowedOrigins []string
	Production     bool
	BaseURL        string
	ExportLinkTTL  time.Duration
	MaxUploadBytes int64
}

func NewRouter(svc Services, sessions *scs.SessionManager, opts Options) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.CSRF(opts.AllowedOrigins, opts.Production))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithError(w, http.StatusNotFound, common.CodeNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithError(w, http.StatusMethodNotAllowed, common.CodeValidation, "Method not allowed")
	})

	r.Route("/api", func(api chi.Router) {
		// Participant routes carry the scs session cookie.
		api.Group(func(p chi.Router) {
			p.Use(sessions.LoadAndSave)

			authHandler := handler.NewAuthHandler(svc.Otp, sessions)
			p.Route("/auth", authHandler.RegisterRoutes)

			registrationHandler := handler.NewRegistrationHandler(svc.Registration, opts.MaxUploadBytes)
			p.Group(func(reg chi.Router) {
				reg.Use(middleware.RequireParticipant(sessions))
				registrationHandler.RegisterRoutes(reg)
			})
		})

		exportHandler := handler.NewExportHandler(svc.Teams, opts.BaseURL, opts.ExportLinkTTL)

		api.Route("/admin", func(admin chi.Router) {
			handler.NewAdminAuthHandler(svc.AdminAuth, opts.Production).RegisterRoutes(admin)

			// Signed links let the export open in a new tab without the cookie.
			admin.Group(func(export chi.Router) {
				export.Use(jwtauth.Verify(security.TokenAuth, jwtauth.TokenFromQuery))
				export.Use(middleware.ExportAccess(svc.AdminAuth))
				export.Use(middleware.RequirePermission(model.PermExportData))
				export.Get("/export/teams", exportHandler.ExportTeams)
			})

			admin.Group(func(authed chi.Router) {
				authed.Use(middleware.RequireAdmin(svc.AdminAuth))

				handler.NewTeamHandler(svc.Teams).RegisterRoutes(authed)
				handler.NewAnalyticsHandler(svc.Analytics).RegisterRoutes(authed)
				authed.With(middleware.RequirePermission(model.PermExportData)).Post("/export/link", exportHandler.CreateLink)
				authed.Route("/criteria", handler.NewCriteriaHandler(svc.Criteria).RegisterRoutes)
				authed.Route("/admins", handler.NewAdminHandler(svc.Admins).RegisterRoutes)
			})
		})

		api.Route("/judge", func(judge chi.Router) {
			judge.Use(middleware.RequireAdmin(svc.AdminAuth))
			handler.NewJudgeHandler(svc.Judging).RegisterRoutes(judge)
		})
	})

	return r
}

// NewSessionManager configures the participant session cookie.
func NewSessionManager(store scs.Store, lifetime time.Duration, production bool) *scs.SessionManager {
	sessions := scs.New()
	sessions.Store = store
	sessions.Lifetime = lifetime
	sessions.Cookie.Name = "session_token"
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.Persist = true
	sessions.Cookie.Path = "/"
	sessions.Cookie.SameSite = http.SameSiteStrictMode
	sessions.Cookie.Secure = production
	return sessions
}
