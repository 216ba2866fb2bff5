package service

import (
	"context"
	"errors"
	"fmt"
	"hackathon_portal/internal/common"
	"hackathon_portal/internal/common/security"
	"hackathon_portal/internal/domain/model"
	"hackathon_portal/internal/domain/repository"
	"strings"

	"github.com/google/uuid"
)

const MinPasswordLength = 8

type AdminService struct {
	adminRepo repository.AdminRepository
}

func NewAdminService(adminRepo repository.AdminRepository) *AdminService {
	return &AdminService{adminRepo: adminRepo}
}

type CreateAdminRequest struct {
	Email    string          `json:"email"`
	Name     string          `json:"name"`
	Password string          `json:"password"`
	Role     model.AdminRole `json:"role"`
}

func (s *AdminService) List(ctx context.Context) ([]model.Admin, error) {
	return s.adminRepo.List(ctx)
}

func (s *AdminService) Create(ctx context.Context, req CreateAdminRequest) (*model.Admin, error) {
	email := common.NormalizeEmail(req.Email)
	role := model.AdminRole(strings.ToUpper(string(req.Role)))

	v := common.NewValidator()
	v.Email("email", email)
	v.Length("name", req.Name, 2, 100)
	v.Check(len(req.Password) >= MinPasswordLength, "password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	v.Check(len(req.Password) <= 72, "password", "must be at most 72 bytes")
	v.Check(role.Valid(), "role", "must be SUPER_ADMIN, ADMIN, ORGANIZER or JUDGE")
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	admin := &model.Admin{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, common.ErrDuplicate) {
			return nil, common.NewError(common.CodeDuplicateEmail, "An admin with this email already exists")
		}
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	return admin, nil
}
