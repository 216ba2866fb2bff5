package repository

import (
	"context"
	"hackathon_portal/internal/domain/model"

	"github.com/jmoiron/sqlx"
)

type ScoreRepository interface {
	// ReplaceJudgeScores deletes the judge's previous rows for the submission
	// and writes scores in their place.
	ReplaceJudgeScores(ctx context.Context, tx *sqlx.Tx, submissionID, judgeID string, scores []model.CriterionScore) error
	ListBySubmission(ctx context.Context, tx *sqlx.Tx, submissionID string) ([]model.CriterionScore, error)
	// ListScoredTeams returns approved, non-deleted teams that have at least
	// one score row, each with all of its rows. A nil track means all tracks.
	ListScoredTeams(ctx context.Context, track *model.Track) ([]model.ScoredTeam, error)
	ListJudgeTeams(ctx context.Context, judgeID string, track *model.Track) ([]model.JudgeTeam, error)
}

type pgScoreRepository struct {
	db *sqlx.DB
}

func NewPgScoreRepository(db *sqlx.DB) ScoreRepository {
	return &pgScoreRepository{db: db}
}

const scoreColumns = `id, submission_id, judge_id, judge_name, criterion_id, points, comment, created_at`

func (r *pgScoreRepository) ReplaceJudgeScores(ctx context.Context, tx *sqlx.Tx, submissionID, judgeID string, scores []model.CriterionScore) error {
	q := pick(r.db, tx)
	if _, err := q.ExecContext(ctx,
		`DELETE FROM criterion_scores WHERE submission_id = $1 AND judge_id = $2`, submissionID, judgeID); err != nil {
		return mapError("pgScoreRepository.ReplaceJudgeScores delete", err)
	}

	query := `INSERT INTO criterion_scores (id, submission_id, judge_id, judge_name, criterion_id, points, comment, created_at)
	          VALUES (:id, :submission_id, :judge_id, :judge_name, :criterion_id, :points, :comment, :created_at)`
	for i := range scores {
		if _, err := q.NamedExecContext(ctx, query, &scores[i]); err != nil {
			return mapError("pgScoreRepository.ReplaceJudgeScores insert", err)
		}
	}
	return nil
}

func (r *pgScoreRepository) ListBySubmission(ctx context.Context, tx *sqlx.Tx, submissionID string) ([]model.CriterionScore, error) {
	scores := []model.CriterionScore{}
	err := pick(r.db, tx).SelectContext(ctx, &scores,
		`SELECT `+scoreColumns+` FROM criterion_scores WHERE submission_id = $1 ORDER BY judge_id, created_at`, submissionID)
	if err != nil {
		return nil, mapError("pgScoreRepository.ListBySubmission", err)
	}
	return scores, nil
}

func (r *pgScoreRepository) ListScoredTeams(ctx context.Context, track *model.Track) ([]model.ScoredTeam, error) {
	var rows []struct {
		TeamID     string      `db:"team_id"`
		TeamName   string      `db:"team_name"`
		Track      model.Track `db:"track"`
		JudgeScore *float64    `db:"judge_score"`
		model.CriterionScore
	}
	query := `SELECT t.id AS team_id, t.name AS team_name, t.track, s.judge_score,
	              cs.id, cs.submission_id, cs.judge_id, cs.judge_name, cs.criterion_id, cs.points, cs.comment, cs.created_at
	          FROM criterion_scores cs
	          JOIN submissions s ON s.id = cs.submission_id
	          JOIN teams t ON t.id = s.team_id
	          WHERE t.status = 'APPROVED' AND t.deleted_at IS NULL AND ($1::text IS NULL OR t.track = $1)
	          ORDER BY t.name, t.id, cs.judge_id, cs.created_at`
	if err := r.db.SelectContext(ctx, &rows, query, trackParam(track)); err != nil {
		return nil, mapError("pgScoreRepository.ListScoredTeams", err)
	}

	teams := []model.ScoredTeam{}
	index := map[string]int{}
	for _, row := range rows {
		i, ok := index[row.TeamID]
		if !ok {
			i = len(teams)
			index[row.TeamID] = i
			teams = append(teams, model.ScoredTeam{
				TeamID:       row.TeamID,
				TeamName:     row.TeamName,
				Track:        row.Track,
				SubmissionID: row.SubmissionID,
				JudgeScore:   row.JudgeScore,
			})
		}
		teams[i].Scores = append(teams[i].Scores, row.CriterionScore)
	}
	return teams, nil
}

func (r *pgScoreRepository) ListJudgeTeams(ctx context.Context, judgeID string, track *model.Track) ([]model.JudgeTeam, error) {
	query := `SELECT t.id AS team_id, t.name AS team_name, t.track, s.id AS submission_id,
	              EXISTS (SELECT 1 FROM criterion_scores m WHERE m.submission_id = s.id AND m.judge_id = $1) AS scored_by_me,
	              (SELECT COUNT(DISTINCT c.judge_id) FROM criterion_scores c WHERE c.submission_id = s.id) AS judge_count
	          FROM teams t
	          JOIN submissions s ON s.team_id = t.id
	          WHERE t.status = 'APPROVED' AND t.deleted_at IS NULL AND ($2::text IS NULL OR t.track = $2)
	          ORDER BY t.name`
	teams := []model.JudgeTeam{}
	if err := r.db.SelectContext(ctx, &teams, query, judgeID, trackParam(track)); err != nil {
		return nil, mapError("pgScoreRepository.ListJudgeTeams", err)
	}
	return teams, nil
}

func trackParam(track *model.Track) *string {
	if track == nil {
		return nil
	}
	s := string(*track)
	return &s
}
