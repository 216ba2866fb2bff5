package service

import (
	"context"
	"fmt"
	"hackathon_portal/internal/app/cache"
	"hackathon_portal/internal/app/scoring"
	"hackathon_portal/internal/common"
	"hackathon_portal/internal/domain/model"
	"hackathon_portal/internal/domain/repository"
	"hackathon_portal/internal/platform/database"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type JudgingService struct {
	txRunner       database.TxRunner
	teamRepo       repository.TeamRepository
	criterionRepo  repository.CriterionRepository
	scoreRepo      repository.ScoreRepository
	submissionRepo repository.SubmissionRepository
	cache          *cache.Cache
	now            func() time.Time
}

func NewJudgingService(txRunner database.TxRunner, teamRepo repository.TeamRepository, criterionRepo repository.CriterionRepository,
	scoreRepo repository.ScoreRepository, submissionRepo repository.SubmissionRepository, c *cache.Cache) *JudgingService {
	return &JudgingService{
		txRunner:       txRunner,
		teamRepo:       teamRepo,
		criterionRepo:  criterionRepo,
		scoreRepo:      scoreRepo,
		submissionRepo: submissionRepo,
		cache:          c,
		now:            time.Now,
	}
}

func (s *JudgingService) ListTeams(ctx context.Context, judge *model.Admin, track *model.Track) ([]model.JudgeTeam, error) {
	return s.scoreRepo.ListJudgeTeams(ctx, judge.ID, track)
}

type JudgeTeamDetail struct {
	Team     *model.Team              `json:"team"`
	Criteria []model.ScoringCriterion `json:"criteria"`
	MyScores []model.CriterionScore   `json:"my_scores"`
}

func (s *JudgingService) GetTeam(ctx context.Context, judge *model.Admin, teamID string) (*JudgeTeamDetail, error) {
	team, err := teamForJudging(ctx, s.teamRepo, teamID)
	if err != nil {
		return nil, err
	}
	criteria, err := s.criterionRepo.List(ctx, &team.Track, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load criteria: %w", err)
	}
	scores, err := s.scoreRepo.ListBySubmission(ctx, nil, team.Submission.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scores: %w", err)
	}
	mine := []model.CriterionScore{}
	for _, sc := range scores {
		if sc.JudgeID == judge.ID {
			mine = append(mine, sc)
		}
	}
	return &JudgeTeamDetail{Team: team, Criteria: criteria, MyScores: mine}, nil
}

type ScoreInput struct {
	CriterionID string  `json:"criterion_id"`
	Points      float64 `json:"points"`
	Comment     *string `json:"comment"`
}

type SubmitScoresRequest struct {
	Scores []ScoreInput `json:"scores"`
}

type SubmitScoresResult struct {
	TeamID     string                 `json:"team_id"`
	JudgeScore float64                `json:"judge_score"`
	Scores     []model.CriterionScore `json:"scores"`
}

// SubmitScores records one score per active criterion of the team's track,
// replacing any earlier submission by the same judge, and recomputes the
// team's cached judge score in the same transaction.
func (s *JudgingService) SubmitScores(ctx context.Context, judge *model.Admin, teamID string, req SubmitScoresRequest) (*SubmitScoresResult, error) {
	team, err := teamForJudging(ctx, s.teamRepo, teamID)
	if err != nil {
		return nil, err
	}
	criteria, err := s.criterionRepo.List(ctx, &team.Track, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load criteria: %w", err)
	}
	if len(criteria) == 0 {
		return nil, common.NewError(common.CodeConflict, "No scoring criteria are configured for this track")
	}
	idx := scoring.IndexCriteria(criteria)

	now := s.now()
	scores, err := buildScores(req, idx, len(criteria), team.Submission.ID, judge, now)
	if err != nil {
		return nil, err
	}

	var judgeScore float64
	err = s.txRunner.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.scoreRepo.ReplaceJudgeScores(ctx, tx, team.Submission.ID, judge.ID, scores); err != nil {
			return err
		}
		all, err := s.scoreRepo.ListBySubmission(ctx, tx, team.Submission.ID)
		if err != nil {
			return err
		}
		judgeScore = scoring.TeamScore(all, idx)
		return s.submissionRepo.UpdateJudgeScore(ctx, tx, team.Submission.ID, &judgeScore)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save scores: %w", err)
	}

	invalidateAggregates(ctx, s.cache)
	return &SubmitScoresResult{TeamID: team.ID, JudgeScore: judgeScore, Scores: scores}, nil
}

func buildScores(req SubmitScoresRequest, idx map[string]model.ScoringCriterion, want int,
	submissionID string, judge *model.Admin, now time.Time) ([]model.CriterionScore, error) {
	v := common.NewValidator()
	v.Check(len(req.Scores) == want, "scores", fmt.Sprintf("must contain exactly one entry per criterion (%d)", want))

	seen := map[string]bool{}
	scores := make([]model.CriterionScore, 0, len(req.Scores))
	for i, in := range req.Scores {
		field := fmt.Sprintf("scores[%d]", i)
		c, ok := idx[in.CriterionID]
		v.Check(ok, field+".criterion_id", "is not an active criterion of this track")
		v.Check(!seen[in.CriterionID], field+".criterion_id", "is scored more than once")
		seen[in.CriterionID] = true
		if ok {
			v.Check(in.Points >= 0 && in.Points <= c.MaxPoints, field+".points",
				fmt.Sprintf("must be between 0 and %g", c.MaxPoints))
		}
		v.Check(in.Comment == nil || len(*in.Comment) <= 2000, field+".comment", "must be at most 2000 characters")

		scores = append(scores, model.CriterionScore{
			ID:           uuid.NewString(),
			SubmissionID: submissionID,
			JudgeID:      judge.ID,
			JudgeName:    judge.Name,
			CriterionID:  in.CriterionID,
			Points:       in.Points,
			Comment:      in.Comment,
			CreatedAt:    now,
		})
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	return scores, nil
}
