package repository

import (
	"context"
	"hackathon_portal/internal/domain/model"
	"time"

	"github.com/jmoiron/sqlx"
)

type AdminSessionRepository interface {
	Create(ctx context.Context, session *model.AdminSession) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.AdminSession, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type pgAdminSessionRepository struct {
	db *sqlx.DB
}

func NewPgAdminSessionRepository(db *sqlx.DB) AdminSessionRepository {
	return &pgAdminSessionRepository{db: db}
}

func (r *pgAdminSessionRepository) Create(ctx context.Context, session *model.AdminSession) error {
	query := `INSERT INTO admin_sessions (id, admin_id, token_hash, expires_at, ip_address, user_agent, created_at)
	          VALUES (:id, :admin_id, :token_hash, :expires_at, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return mapError("pgAdminSessionRepository.Create", err)
	}
	return nil
}

func (r *pgAdminSessionRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.AdminSession, error) {
	session := &model.AdminSession{}
	query := `SELECT id, admin_id, token_hash, expires_at, ip_address, user_agent, created_at
	          FROM admin_sessions WHERE token_hash = $1`
	if err := r.db.GetContext(ctx, session, query, tokenHash); err != nil {
		return nil, mapError("pgAdminSessionRepository.FindByTokenHash", err)
	}
	return session, nil
}

func (r *pgAdminSessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return 0, mapError("pgAdminSessionRepository.DeleteByTokenHash", err)
	}
	return res.RowsAffected()
}

func (r *pgAdminSessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, mapError("pgAdminSessionRepository.DeleteExpired", err)
	}
	return res.RowsAffected()
}
