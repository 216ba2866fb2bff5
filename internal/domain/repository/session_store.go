package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// PgSessionStore persists participant sessions for scs in the user_sessions
// table. It implements scs.CtxStore.
type PgSessionStore struct {
	db *sqlx.DB
}

func NewPgSessionStore(db *sqlx.DB) *PgSessionStore {
	return &PgSessionStore{db: db}
}

func (s *PgSessionStore) FindCtx(ctx context.Context, token string) ([]byte, bool, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data, `SELECT data FROM user_sessions WHERE token = $1 AND expiry > NOW()`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, mapError("PgSessionStore.Find", err)
	}
	return data, true, nil
}

func (s *PgSessionStore) CommitCtx(ctx context.Context, token string, b []byte, expiry time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_sessions (token, data, expiry) VALUES ($1, $2, $3)
		 ON CONFLICT (token) DO UPDATE SET data = EXCLUDED.data, expiry = EXCLUDED.expiry`, token, b, expiry)
	return mapError("PgSessionStore.Commit", err)
}

func (s *PgSessionStore) DeleteCtx(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE token = $1`, token)
	return mapError("PgSessionStore.Delete", err)
}

func (s *PgSessionStore) Find(token string) ([]byte, bool, error) {
	return s.FindCtx(context.Background(), token)
}

func (s *PgSessionStore) Commit(token string, b []byte, expiry time.Time) error {
	return s.CommitCtx(context.Background(), token, b, expiry)
}

func (s *PgSessionStore) Delete(token string) error {
	return s.DeleteCtx(context.Background(), token)
}

func (s *PgSessionStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE expiry < $1`, before)
	if err != nil {
		return 0, mapError("PgSessionStore.DeleteExpired", err)
	}
	return res.RowsAffected()
}
