package repository

import (
	"context"
	"hackathon_portal/internal/domain/model"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type UserRepository interface {
	// UpsertVerified creates the user for email or marks an existing one as
	// verified, returning the stored row.
	UpsertVerified(ctx context.Context, email string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type pgUserRepository struct {
	db *sqlx.DB
}

func NewPgUserRepository(db *sqlx.DB) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, email, email_verified, created_at, updated_at`

func (r *pgUserRepository) UpsertVerified(ctx context.Context, email string) (*model.User, error) {
	query := `INSERT INTO users (id, email, email_verified) VALUES ($1, $2, TRUE)
	          ON CONFLICT (email) DO UPDATE SET email_verified = TRUE, updated_at = NOW()
	          RETURNING ` + userColumns
	user := &model.User{}
	if err := r.db.GetContext(ctx, user, query, uuid.NewString(), email); err != nil {
		return nil, mapError("pgUserRepository.UpsertVerified", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	err := r.db.GetContext(ctx, user, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		return nil, mapError("pgUserRepository.FindByEmail", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	err := r.db.GetContext(ctx, user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, mapError("pgUserRepository.FindByID", err)
	}
	return user, nil
}
