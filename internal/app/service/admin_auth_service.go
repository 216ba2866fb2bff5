package service

import (
	"context"
	"errors"
	"fmt"
	"hackathon_portal/internal/app/ratelimit"
	"hackathon_portal/internal/common"
	"hackathon_portal/internal/common/security"
	"hackathon_portal/internal/domain/model"
	"hackathon_portal/internal/domain/repository"
	"log"
	"time"

	"github.com/google/uuid"
)

type AdminAuthService struct {
	adminRepo   repository.AdminRepository
	sessionRepo repository.AdminSessionRepository
	limiter     ratelimit.Limiter
	sessionTTL  time.Duration
	loginLimit  int
	loginWindow time.Duration
	now         func() time.Time
}

func NewAdminAuthService(adminRepo repository.AdminRepository, sessionRepo repository.AdminSessionRepository,
	limiter ratelimit.Limiter, sessionTTL time.Duration, loginLimit int, loginWindow time.Duration) *AdminAuthService {
	return &AdminAuthService{
		adminRepo:   adminRepo,
		sessionRepo: sessionRepo,
		limiter:     limiter,
		sessionTTL:  sessionTTL,
		loginLimit:  loginLimit,
		loginWindow: loginWindow,
		now:         time.Now,
	}
}

type AdminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AdminLoginResult struct {
	Admin     *model.Admin `json:"admin"`
	Token     string       `json:"-"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Login never tells the caller which check failed: unknown email, inactive
// account and wrong password all return ErrInvalidCredentials after a bcrypt
// comparison.
func (s *AdminAuthService) Login(ctx context.Context, req AdminLoginRequest, clientIP, userAgent string) (*AdminLoginResult, error) {
	rl, err := s.limiter.Allow(ctx, "admin:login:"+clientIP, s.loginLimit, s.loginWindow)
	if err != nil {
		return nil, fmt.Errorf("admin login rate limit: %w", err)
	}
	if !rl.Allowed {
		return nil, rl.Err()
	}

	email := common.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, common.Validationf("email and password are required")
	}

	admin, err := s.adminRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			security.BurnPasswordCheck(req.Password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find admin: %w", err)
	}
	if !security.CheckPasswordHash(req.Password, admin.PasswordHash) || !admin.Active {
		return nil, common.ErrInvalidCredentials
	}

	token, err := security.GenerateSessionToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	session := &model.AdminSession{
		ID:        uuid.NewString(),
		AdminID:   admin.ID,
		TokenHash: security.HashToken(token),
		ExpiresAt: now.Add(s.sessionTTL),
		IPAddress: optional(clientIP),
		UserAgent: optional(userAgent),
		CreatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create admin session: %w", err)
	}

	if err := s.adminRepo.RecordLogin(ctx, admin.ID, clientIP, now); err != nil {
		log.Printf("WARN: Failed to record login for admin %s: %v", admin.ID, err)
	}
	admin.LastLoginAt = &now
	admin.LastLoginIP = optional(clientIP)

	return &AdminLoginResult{Admin: admin, Token: token, ExpiresAt: session.ExpiresAt}, nil
}

// Logout deletes the session behind token. A token with no session is not an
// error.
func (s *AdminAuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if _, err := s.sessionRepo.DeleteByTokenHash(ctx, security.HashToken(token)); err != nil {
		return fmt.Errorf("failed to delete admin session: %w", err)
	}
	return nil
}

func (s *AdminAuthService) Authenticate(ctx context.Context, token string) (*model.Admin, error) {
	if token == "" {
		return nil, common.ErrUnauthorized
	}
	hash := security.HashToken(token)
	session, err := s.sessionRepo.FindByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load admin session: %w", err)
	}
	if !s.now().Before(session.ExpiresAt) {
		if _, err := s.sessionRepo.DeleteByTokenHash(ctx, hash); err != nil {
			log.Printf("WARN: Failed to delete expired admin session %s: %v", session.ID, err)
		}
		return nil, common.ErrSessionExpired
	}

	admin, err := s.adminRepo.FindByID(ctx, session.AdminID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load admin: %w", err)
	}
	if !admin.Active {
		return nil, common.ErrUnauthorized
	}
	return admin, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// AdminByID resolves the subject of a signed export link.
func (s *AdminAuthService) AdminByID(ctx context.Context, id string) (*model.Admin, error) {
	admin, err := s.adminRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load admin: %w", err)
	}
	if !admin.Active {
		return nil, common.ErrUnauthorized
	}
	return admin, nil
}
