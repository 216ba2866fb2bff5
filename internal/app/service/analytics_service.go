package service

import (
	"context"
	"fmt"
	"hackathon_portal/internal/app/cache"
	"hackathon_portal/internal/app/scoring"
	"hackathon_portal/internal/domain/model"
	"hackathon_portal/internal/domain/repository"
	"time"
)

const analyticsCacheTTL = 5 * time.Minute

type AnalyticsService struct {
	scoreRepo     repository.ScoreRepository
	criterionRepo repository.CriterionRepository
	cache         *cache.Cache
	opts          scoring.Options
}

func NewAnalyticsService(scoreRepo repository.ScoreRepository, criterionRepo repository.CriterionRepository, c *cache.Cache) *AnalyticsService {
	return &AnalyticsService{scoreRepo: scoreRepo, criterionRepo: criterionRepo, cache: c, opts: scoring.DefaultOptions()}
}

func analyticsKey(track *model.Track) string {
	if track == nil {
		return analyticsKeyPrefix + "all"
	}
	return analyticsKeyPrefix + string(*track)
}

// Report returns the scoring report for one track, or all tracks when track
// is nil. Reports are cached until a score, status or criteria change.
func (s *AnalyticsService) Report(ctx context.Context, track *model.Track) (*scoring.Report, error) {
	return cache.GetOrLoad(ctx, s.cache, analyticsKey(track), analyticsCacheTTL, func(ctx context.Context) (*scoring.Report, error) {
		teams, err := s.scoreRepo.ListScoredTeams(ctx, track)
		if err != nil {
			return nil, fmt.Errorf("failed to load scored teams: %w", err)
		}
		criteria, err := s.criterionRepo.List(ctx, track, true)
		if err != nil {
			return nil, fmt.Errorf("failed to load criteria: %w", err)
		}
		return scoring.Aggregate(teams, criteria, s.opts), nil
	})
}
