package repository

import (
	"context"
	"hackathon_portal/internal/domain/model"

	"github.com/jmoiron/sqlx"
)

type CriterionRepository interface {
	// List returns criteria ordered by track and display order. A nil track
	// lists every track.
	List(ctx context.Context, track *model.Track, activeOnly bool) ([]model.ScoringCriterion, error)
	// ReplaceActive deactivates every criterion of track and then upserts
	// criteria as the active set. Deactivated rows are kept because scores
	// still reference them.
	ReplaceActive(ctx context.Context, tx *sqlx.Tx, track model.Track, criteria []model.ScoringCriterion) error
}

type pgCriterionRepository struct {
	db *sqlx.DB
}

func NewPgCriterionRepository(db *sqlx.DB) CriterionRepository {
	return &pgCriterionRepository{db: db}
}

func (r *pgCriterionRepository) List(ctx context.Context, track *model.Track, activeOnly bool) ([]model.ScoringCriterion, error) {
	query := `SELECT id, track, name, description, weight, max_points, active, display_order, created_at, updated_at
	          FROM scoring_criteria
	          WHERE ($1::text IS NULL OR track = $1) AND (NOT $2 OR active)
	          ORDER BY track, display_order, name`
	criteria := []model.ScoringCriterion{}
	if err := r.db.SelectContext(ctx, &criteria, query, trackParam(track), activeOnly); err != nil {
		return nil, mapError("pgCriterionRepository.List", err)
	}
	return criteria, nil
}

func (r *pgCriterionRepository) ReplaceActive(ctx context.Context, tx *sqlx.Tx, track model.Track, criteria []model.ScoringCriterion) error {
	q := pick(r.db, tx)
	if _, err := q.ExecContext(ctx,
		`UPDATE scoring_criteria SET active = FALSE, updated_at = NOW() WHERE track = $1 AND active`, track); err != nil {
		return mapError("pgCriterionRepository.ReplaceActive deactivate", err)
	}

	query := `INSERT INTO scoring_criteria (id, track, name, description, weight, max_points, active, display_order)
	          VALUES (:id, :track, :name, :description, :weight, :max_points, TRUE, :display_order)
	          ON CONFLICT (id) DO UPDATE
	          SET name = EXCLUDED.name, description = EXCLUDED.description, weight = EXCLUDED.weight,
	              max_points = EXCLUDED.max_points, active = TRUE, display_order = EXCLUDED.display_order,
	              updated_at = NOW()`
	for i := range criteria {
		if _, err := q.NamedExecContext(ctx, query, &criteria[i]); err != nil {
			return mapError("pgCriterionRepository.ReplaceActive upsert", err)
		}
	}
	return nil
}
