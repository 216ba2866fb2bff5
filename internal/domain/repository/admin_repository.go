package repository

import (
	"context"
	"hackathon_portal/internal/domain/model"
	"time"

	"github.com/jmoiron/sqlx"
)

type AdminRepository interface {
	Create(ctx context.Context, admin *model.Admin) error
	FindByEmail(ctx context.Context, email string) (*model.Admin, error)
	FindByID(ctx context.Context, id string) (*model.Admin, error)
	List(ctx context.Context) ([]model.Admin, error)
	RecordLogin(ctx context.Context, id, ip string, at time.Time) error
}

type pgAdminRepository struct {
	db *sqlx.DB
}

func NewPgAdminRepository(db *sqlx.DB) AdminRepository {
	return &pgAdminRepository{db: db}
}

const adminColumns = `id, email, name, password_hash, role, active, last_login_at, last_login_ip, created_at, updated_at`

func (r *pgAdminRepository) Create(ctx context.Context, admin *model.Admin) error {
	query := `INSERT INTO admins (id, email, name, password_hash, role, active)
	          VALUES (:id, :email, :name, :password_hash, :role, :active)`
	if _, err := r.db.NamedExecContext(ctx, query, admin); err != nil {
		return mapError("pgAdminRepository.Create", err)
	}
	return nil
}

func (r *pgAdminRepository) FindByEmail(ctx context.Context, email string) (*model.Admin, error) {
	admin := &model.Admin{}
	if err := r.db.GetContext(ctx, admin, `SELECT `+adminColumns+` FROM admins WHERE email = $1`, email); err != nil {
		return nil, mapError("pgAdminRepository.FindByEmail", err)
	}
	return admin, nil
}

func (r *pgAdminRepository) FindByID(ctx context.Context, id string) (*model.Admin, error) {
	admin := &model.Admin{}
	if err := r.db.GetContext(ctx, admin, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id); err != nil {
		return nil, mapError("pgAdminRepository.FindByID", err)
	}
	return admin, nil
}

func (r *pgAdminRepository) List(ctx context.Context) ([]model.Admin, error) {
	admins := []model.Admin{}
	if err := r.db.SelectContext(ctx, &admins, `SELECT `+adminColumns+` FROM admins ORDER BY created_at`); err != nil {
		return nil, mapError("pgAdminRepository.List", err)
	}
	return admins, nil
}

func (r *pgAdminRepository) RecordLogin(ctx context.Context, id, ip string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE admins SET last_login_at = $2, last_login_ip = $3, updated_at = $2 WHERE id = $1`, id, at, ip)
	if err != nil {
		return mapError("pgAdminRepository.RecordLogin", err)
	}
	return nil
}
