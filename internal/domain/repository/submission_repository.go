package repository

import (
	"context"
	"hackathon_portal/internal/domain/model"

	"github.com/jmoiron/sqlx"
)

type SubmissionRepository interface {
	FindByTeamID(ctx context.Context, teamID string) (*model.Submission, error)
	AddFile(ctx context.Context, file *model.SubmissionFile) error
	// UpdateJudgeScore stores the cached aggregate; nil clears it.
	UpdateJudgeScore(ctx context.Context, tx *sqlx.Tx, submissionID string, score *float64) error
}

type pgSubmissionRepository struct {
	db *sqlx.DB
}

func NewPgSubmissionRepository(db *sqlx.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

const submissionColumns = `id, team_id, idea_title, problem_statement, proposed_solution, target_users,
	problem_description, tech_stack, github_link, demo_link, judge_score, created_at, updated_at`

const submissionFileColumns = `id, submission_id, file_name, object_key, file_url, size, mime_type, created_at`

func (r *pgSubmissionRepository) FindByTeamID(ctx context.Context, teamID string) (*model.Submission, error) {
	sub := &model.Submission{}
	if err := r.db.GetContext(ctx, sub, `SELECT `+submissionColumns+` FROM submissions WHERE team_id = $1`, teamID); err != nil {
		return nil, mapError("pgSubmissionRepository.FindByTeamID", err)
	}
	if err := r.db.SelectContext(ctx, &sub.Files,
		`SELECT `+submissionFileColumns+` FROM submission_files WHERE submission_id = $1 ORDER BY created_at`, sub.ID); err != nil {
		return nil, mapError("pgSubmissionRepository.FindByTeamID files", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) AddFile(ctx context.Context, file *model.SubmissionFile) error {
	query := `INSERT INTO submission_files (id, submission_id, file_name, object_key, file_url, size, mime_type)
	          VALUES (:id, :submission_id, :file_name, :object_key, :file_url, :size, :mime_type)`
	if _, err := r.db.NamedExecContext(ctx, query, file); err != nil {
		return mapError("pgSubmissionRepository.AddFile", err)
	}
	return nil
}

func (r *pgSubmissionRepository) UpdateJudgeScore(ctx context.Context, tx *sqlx.Tx, submissionID string, score *float64) error {
	res, err := pick(r.db, tx).ExecContext(ctx,
		`UPDATE submissions SET judge_score = $2, updated_at = NOW() WHERE id = $1`, submissionID, score)
	if err != nil {
		return mapError("pgSubmissionRepository.UpdateJudgeScore", err)
	}
	return expectAffected("pgSubmissionRepository.UpdateJudgeScore", res)
}
