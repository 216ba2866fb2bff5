package repository

import (
	"context"
	"hackathon_portal/internal/domain/model"
	"time"

	"github.com/jmoiron/sqlx"
)

type OtpRepository interface {
	// Upsert replaces any code already issued for (email, purpose), resetting
	// its attempt counter and verified flag.
	Upsert(ctx context.Context, otp *model.Otp) error
	Find(ctx context.Context, email string, purpose model.OtpPurpose) (*model.Otp, error)
	// MarkVerified flips a pending code to verified. A code that is already
	// verified reports ErrNotFound, so only one caller can consume it.
	MarkVerified(ctx context.Context, id string) error
	// IncrementAttempts bumps the counter in a single statement and returns
	// the new value, so concurrent wrong guesses are all counted.
	IncrementAttempts(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type pgOtpRepository struct {
	db *sqlx.DB
}

func NewPgOtpRepository(db *sqlx.DB) OtpRepository {
	return &pgOtpRepository{db: db}
}

func (r *pgOtpRepository) Upsert(ctx context.Context, otp *model.Otp) error {
	query := `INSERT INTO otps (id, email, purpose, code_hash, expires_at, verified, attempts)
	          VALUES (:id, :email, :purpose, :code_hash, :expires_at, FALSE, 0)
	          ON CONFLICT (email, purpose) DO UPDATE
	          SET code_hash = EXCLUDED.code_hash, expires_at = EXCLUDED.expires_at,
	              verified = FALSE, attempts = 0, updated_at = NOW()`
	if _, err := r.db.NamedExecContext(ctx, query, otp); err != nil {
		return mapError("pgOtpRepository.Upsert", err)
	}
	return nil
}

func (r *pgOtpRepository) Find(ctx context.Context, email string, purpose model.OtpPurpose) (*model.Otp, error) {
	query := `SELECT id, email, purpose, code_hash, expires_at, verified, attempts, created_at, updated_at
	          FROM otps WHERE email = $1 AND purpose = $2`
	otp := &model.Otp{}
	if err := r.db.GetContext(ctx, otp, query, email, purpose); err != nil {
		return nil, mapError("pgOtpRepository.Find", err)
	}
	return otp, nil
}

func (r *pgOtpRepository) MarkVerified(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE otps SET verified = TRUE, updated_at = NOW() WHERE id = $1 AND verified = FALSE`, id)
	if err != nil {
		return mapError("pgOtpRepository.MarkVerified", err)
	}
	return expectAffected("pgOtpRepository.MarkVerified", res)
}

func (r *pgOtpRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.db.GetContext(ctx, &attempts,
		`UPDATE otps SET attempts = attempts + 1, updated_at = NOW() WHERE id = $1 RETURNING attempts`, id)
	if err != nil {
		return 0, mapError("pgOtpRepository.IncrementAttempts", err)
	}
	return attempts, nil
}

func (r *pgOtpRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE id = $1`, id); err != nil {
		return mapError("pgOtpRepository.Delete", err)
	}
	return nil
}

func (r *pgOtpRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE expires_at < $1`, before)
	if err != nil {
		return 0, mapError("pgOtpRepository.DeleteExpired", err)
	}
	return res.RowsAffected()
}
