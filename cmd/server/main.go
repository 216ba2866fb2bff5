package main

import (
	"context"
	"fmt"
	"hackathon_portal/internal/api"
	"hackathon_portal/internal/app/cache"
	"hackathon_portal/internal/app/ratelimit"
	"hackathon_portal/internal/app/service"
	"hackathon_portal/internal/app/worker"
	"hackathon_portal/internal/common"
	"hackathon_portal/internal/common/security"
	"hackathon_portal/internal/domain/repository"
	"hackathon_portal/internal/platform/config"
	"hackathon_portal/internal/platform/database"
	"hackathon_portal/internal/platform/kv"
	"hackathon_portal/internal/platform/mail"
	"hackathon_portal/internal/platform/storage"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	// 1. Load Configuration
	config.Load()
	cfg := config.AppConfig
	if err := cfg.Validate(); err != nil {
		log.Fatalf("ERROR: invalid configuration: %v", err)
	}
	common.ExposeErrorDetails = !cfg.IsProduction()
	fmt.Println("Configuration loaded.")

	// 2. Initialize JWT (signed export links)
	security.InitJWT(cfg.JWTKey)

	// 3. Initialize Database and apply migrations
	database.Connect()
	defer database.Close()
	if cfg.AutoMigrate {
		if err := database.MigrateUp(database.DB.DB); err != nil {
			log.Fatalf("Database migration failed: %v", err)
		}
	}

	// 4. Initialize Redis (optional)
	kv.ConnectRedis()
	defer kv.CloseRedis()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Cache and rate limiter
	memory := cache.NewMemoryStore()
	sweeper, err := memory.StartSweeper(cfg.CacheSweepEvery)
	if err != nil {
		log.Fatalf("Could not start cache sweeper: %v", err)
	}
	appCache := cache.Connect(ctx, kv.RDB, memory, cfg.CacheTTL)
	log.Printf("INFO: Cache backend: %s", appCache.Backend())
	limiter := ratelimit.New(kv.RDB)

	// 6. Mail delivery
	var mailer mail.Mailer = mail.LogMailer{}
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	} else if cfg.IsProduction() {
		log.Println("WARN: SMTP_HOST is not set, verification emails are only logged")
	}
	mailQueue := worker.NewMailQueue(kv.RDB, cfg.MailQueueName, mailer)

	// 7. Object storage (optional)
	var objects storage.ObjectStore
	if cfg.S3Bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Options{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		if err != nil {
			log.Fatalf("Could not initialize object storage: %v", err)
		}
		objects = s3Store
	} else {
		log.Println("WARN: S3_BUCKET is not set, file uploads are disabled")
	}

	// 8. Initialize Repositories
	txRunner := database.NewTxRunner(database.DB)
	userRepo := repository.NewPgUserRepository(database.DB)
	otpRepo := repository.NewPgOtpRepository(database.DB)
	teamRepo := repository.NewPgTeamRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)
	criterionRepo := repository.NewPgCriterionRepository(database.DB)
	scoreRepo := repository.NewPgScoreRepository(database.DB)
	adminRepo := repository.NewPgAdminRepository(database.DB)
	adminSessionRepo := repository.NewPgAdminSessionRepository(database.DB)
	sessionStore := repository.NewPgSessionStore(database.DB)

	// 9. Initialize Services
	services := api.Services{
		Otp: service.NewOtpService(otpRepo, userRepo, teamRepo, limiter, mailQueue, cfg.OTPTTL, service.OtpLimits{
			IPLimit:     cfg.OTPIPLimit,
			IPWindow:    cfg.OTPIPWindow,
			EmailLimit:  cfg.OTPEmailLimit,
			EmailWindow: cfg.OTPEmailWindow,
		}),
		AdminAuth:    service.NewAdminAuthService(adminRepo, adminSessionRepo, limiter, cfg.AdminSessionTTL, cfg.AdminLoginLimit, cfg.AdminLoginWindow),
		Registration: service.NewRegistrationService(txRunner, userRepo, teamRepo, submissionRepo, objects, appCache, cfg.MaxUploadBytes),
		Teams:        service.NewTeamService(teamRepo, scoreRepo, appCache),
		Criteria:     service.NewCriteriaService(txRunner, criterionRepo, appCache),
		Judging:      service.NewJudgingService(txRunner, teamRepo, criterionRepo, scoreRepo, submissionRepo, appCache),
		Analytics:    service.NewAnalyticsService(scoreRepo, criterionRepo, appCache),
		Admins:       service.NewAdminService(adminRepo),
	}

	// 10. Background workers
	if kv.RDB != nil {
		go worker.NewMailWorker(kv.RDB, cfg.MailQueueName, mailer).Start(ctx)
		fmt.Println("Mail worker started.")
	}
	maintenance, err := worker.NewMaintenance(map[string]worker.Purger{
		"otps":                 otpRepo,
		"admin sessions":       adminSessionRepo,
		"participant sessions": sessionStore,
	}).Start(ctx, cfg.MaintenanceEvery)
	if err != nil {
		log.Fatalf("Could not start maintenance jobs: %v", err)
	}

	// 11. Initialize Router & HTTP Server
	sessions := api.NewSessionManager(sessionStore, cfg.SessionLifetime, cfg.IsProduction())
	router := api.NewRouter(services, sessions, api.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Production:     cfg.IsProduction(),
		BaseURL:        cfg.AppBaseURL,
		ExportLinkTTL:  cfg.ExportLinkTTL,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 12. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop // Wait for interrupt signal

	log.Println("Shutting down server...")
	cancel() // Signal workers to stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server shutdown failed: %v", err)
	}
	if err := maintenance.Shutdown(); err != nil {
		log.Printf("WARN: Maintenance scheduler shutdown: %v", err)
	}
	if err := sweeper.Shutdown(); err != nil {
		log.Printf("WARN: Cache sweeper shutdown: %v", err)
	}

	log.Println("Server and workers stopped gracefully.")
}
