package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hackathon_portal/internal/common"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

// querier is the part of sqlx shared by *sqlx.DB and *sqlx.Tx, so repository
// methods can run either standalone or inside a caller's transaction.
type querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

func pick(db *sqlx.DB, tx *sqlx.Tx) querier {
	if tx != nil {
		return tx
	}
	return db
}

const (
	uniqueViolation      = "23505"
	invalidTextRepresent = "22P02"
)

// mapError turns driver errors into the sentinel errors services check for.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return &common.DuplicateKeyError{Constraint: pgErr.ConstraintName}
		case invalidTextRepresent:
			// A malformed UUID can never match a row.
			return common.ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func expectAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
