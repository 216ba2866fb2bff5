package service

import (
	"context"
	"fmt"
	"hackathon_portal/internal/app/cache"
	"hackathon_portal/internal/common"
	"hackathon_portal/internal/domain/model"
	"hackathon_portal/internal/domain/repository"
	"hackathon_portal/internal/platform/database"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const weightTolerance = 0.01

type CriteriaService struct {
	txRunner      database.TxRunner
	criterionRepo repository.CriterionRepository
	cache         *cache.Cache
}

func NewCriteriaService(txRunner database.TxRunner, criterionRepo repository.CriterionRepository, c *cache.Cache) *CriteriaService {
	return &CriteriaService{txRunner: txRunner, criterionRepo: criterionRepo, cache: c}
}

type CriterionInput struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Weight      float64 `json:"weight"`
	MaxPoints   float64 `json:"max_points"`
}

func (s *CriteriaService) List(ctx context.Context, track *model.Track, activeOnly bool) ([]model.ScoringCriterion, error) {
	return s.criterionRepo.List(ctx, track, activeOnly)
}

// Replace makes inputs the active criteria of track, in the given order.
// Inputs with an id update that criterion; criteria of the track that are
// not listed are deactivated.
func (s *CriteriaService) Replace(ctx context.Context, track model.Track, inputs []CriterionInput) ([]model.ScoringCriterion, error) {
	if !track.Valid() {
		return nil, common.Validationf("track %q is not a valid track", track)
	}
	existing, err := s.criterionRepo.List(ctx, &track, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load criteria: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, c := range existing {
		known[c.ID] = true
	}

	criteria, err := validateCriteria(track, inputs, known)
	if err != nil {
		return nil, err
	}

	err = s.txRunner.WithinTx(ctx, func(tx *sqlx.Tx) error {
		return s.criterionRepo.ReplaceActive(ctx, tx, track, criteria)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replace criteria: %w", err)
	}

	invalidateAggregates(ctx, s.cache)
	return s.criterionRepo.List(ctx, &track, true)
}

func validateCriteria(track model.Track, inputs []CriterionInput, known map[string]bool) ([]model.ScoringCriterion, error) {
	if len(inputs) == 0 {
		return nil, common.Validationf("criteria must contain at least one criterion")
	}

	v := common.NewValidator()
	names := map[string]bool{}
	ids := map[string]bool{}
	var sum float64
	criteria := make([]model.ScoringCriterion, 0, len(inputs))
	for i, in := range inputs {
		field := fmt.Sprintf("criteria[%d]", i)
		name := strings.TrimSpace(in.Name)
		v.Length(field+".name", name, 1, 100)
		v.Check(!names[strings.ToLower(name)], field+".name", "is used by more than one criterion")
		names[strings.ToLower(name)] = true
		v.Check(in.Weight >= 0 && in.Weight <= 100, field+".weight", "must be between 0 and 100")
		v.Check(in.MaxPoints > 0, field+".max_points", "must be greater than 0")

		id := in.ID
		if id == "" {
			id = uuid.NewString()
		} else {
			v.Check(known[id], field+".id", "does not belong to this track")
			v.Check(!ids[id], field+".id", "is listed more than once")
		}
		ids[id] = true
		sum += in.Weight

		criteria = append(criteria, model.ScoringCriterion{
			ID:           id,
			Track:        track,
			Name:         name,
			Description:  in.Description,
			Weight:       in.Weight,
			MaxPoints:    in.MaxPoints,
			Active:       true,
			DisplayOrder: i + 1,
		})
	}
	v.Check(math.Abs(sum-100) <= weightTolerance, "criteria", fmt.Sprintf("weights must sum to 100, got %.2f", sum))
	if err := v.Err(); err != nil {
		return nil, err
	}
	return criteria, nil
}
