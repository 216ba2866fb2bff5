package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hackathon_portal/internal/common"
	"hackathon_portal/internal/domain/model"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

type TeamRepository interface {
	// Create inserts the team, its members and its submission. All three are
	// written through tx so registration is all or nothing.
	Create(ctx context.Context, tx *sqlx.Tx, team *model.Team) error
	FindByID(ctx context.Context, id string) (*model.Team, error)
	// FindForUser returns the non-deleted team the user leads or is a member
	// of.
	FindForUser(ctx context.Context, userID, email string) (*model.Team, error)
	IsEmailRegistered(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, filter model.TeamFilter) ([]model.TeamSummary, int, error)
	// UpdateStatus moves the team from status from to status to. When the
	// stored status is no longer from it returns ErrConflict and writes
	// nothing.
	UpdateStatus(ctx context.Context, id string, from, to model.TeamStatus, reviewerID string, notes *string, at time.Time) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	Stats(ctx context.Context) (*model.TeamStats, error)
	ExportRows(ctx context.Context, filter model.TeamFilter) ([]model.ExportRow, error)
}

type pgTeamRepository struct {
	db *sqlx.DB
}

func NewPgTeamRepository(db *sqlx.DB) TeamRepository {
	return &pgTeamRepository{db: db}
}

const teamColumns = `t.id, t.name, t.track, t.status, t.leader_user_id, t.review_notes, t.reviewed_by,
	t.reviewed_at, t.deleted_at, t.created_at, t.updated_at`

func (r *pgTeamRepository) Create(ctx context.Context, tx *sqlx.Tx, team *model.Team) error {
	q := pick(r.db, tx)

	teamQuery := `INSERT INTO teams (id, name, track, status, leader_user_id)
	              VALUES (:id, :name, :track, :status, :leader_user_id)`
	if _, err := q.NamedExecContext(ctx, teamQuery, team); err != nil {
		return mapError("pgTeamRepository.Create team", err)
	}

	memberQuery := `INSERT INTO team_members (id, team_id, name, email, phone, college, role)
	                VALUES (:id, :team_id, :name, :email, :phone, :college, :role)`
	for i := range team.Members {
		if _, err := q.NamedExecContext(ctx, memberQuery, &team.Members[i]); err != nil {
			return mapError("pgTeamRepository.Create member", err)
		}
	}

	if team.Submission != nil {
		subQuery := `INSERT INTO submissions (id, team_id, idea_title, problem_statement, proposed_solution,
		                 target_users, problem_description, tech_stack, github_link, demo_link)
		             VALUES (:id, :team_id, :idea_title, :problem_statement, :proposed_solution,
		                 :target_users, :problem_description, :tech_stack, :github_link, :demo_link)`
		if _, err := q.NamedExecContext(ctx, subQuery, team.Submission); err != nil {
			return mapError("pgTeamRepository.Create submission", err)
		}
	}
	return nil
}

func (r *pgTeamRepository) FindByID(ctx context.Context, id string) (*model.Team, error) {
	team := &model.Team{}
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.id = $1 AND t.deleted_at IS NULL`
	if err := r.db.GetContext(ctx, team, query, id); err != nil {
		return nil, mapError("pgTeamRepository.FindByID", err)
	}
	if err := r.loadDetails(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

func (r *pgTeamRepository) FindForUser(ctx context.Context, userID, email string) (*model.Team, error) {
	team := &model.Team{}
	query := `SELECT ` + teamColumns + ` FROM teams t
	          WHERE t.deleted_at IS NULL
	            AND (t.leader_user_id = $1
	                 OR EXISTS (SELECT 1 FROM team_members m WHERE m.team_id = t.id AND m.email = $2 AND m.active))
	          ORDER BY t.created_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, team, query, userID, email); err != nil {
		return nil, mapError("pgTeamRepository.FindForUser", err)
	}
	if err := r.loadDetails(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

func (r *pgTeamRepository) loadDetails(ctx context.Context, team *model.Team) error {
	err := r.db.SelectContext(ctx, &team.Members,
		`SELECT id, team_id, name, email, phone, college, role FROM team_members
		 WHERE team_id = $1 ORDER BY role = 'LEADER' DESC, name`, team.ID)
	if err != nil {
		return mapError("pgTeamRepository.loadDetails members", err)
	}

	sub := &model.Submission{}
	err = r.db.GetContext(ctx, sub, `SELECT `+submissionColumns+` FROM submissions WHERE team_id = $1`, team.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return mapError("pgTeamRepository.loadDetails submission", err)
	}
	if err := r.db.SelectContext(ctx, &sub.Files,
		`SELECT `+submissionFileColumns+` FROM submission_files WHERE submission_id = $1 ORDER BY created_at`, sub.ID); err != nil {
		return mapError("pgTeamRepository.loadDetails files", err)
	}
	team.Submission = sub
	return nil
}

func (r *pgTeamRepository) IsEmailRegistered(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (
	              SELECT 1 FROM team_members m JOIN teams t ON t.id = m.team_id
	              WHERE m.email = $1 AND m.active AND t.deleted_at IS NULL)`
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, mapError("pgTeamRepository.IsEmailRegistered", err)
	}
	return exists, nil
}

// filterClause renders the WHERE clause shared by listing and export.
func filterClause(filter model.TeamFilter) (string, []interface{}) {
	conds := []string{"t.deleted_at IS NULL"}
	var args []interface{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if filter.Track != nil {
		args = append(args, *filter.Track)
		conds = append(conds, fmt.Sprintf("t.track = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+strings.ToLower(s)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(LOWER(t.name) LIKE $%d OR EXISTS (SELECT 1 FROM team_members sm WHERE sm.team_id = t.id AND sm.email LIKE $%d))", n, n))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *pgTeamRepository) List(ctx context.Context, filter model.TeamFilter) ([]model.TeamSummary, int, error) {
	where, args := filterClause(filter)

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM teams t`+where, args...); err != nil {
		return nil, 0, mapError("pgTeamRepository.List count", err)
	}

	query := `SELECT ` + teamColumns + `,
	              COALESCE(l.name, '') AS leader_name, COALESCE(l.email, '') AS leader_email,
	              (SELECT COUNT(*) FROM team_members c WHERE c.team_id = t.id) AS member_count,
	              s.judge_score
	          FROM teams t
	          LEFT JOIN team_members l ON l.team_id = t.id AND l.role = 'LEADER'
	          LEFT JOIN submissions s ON s.team_id = t.id` + where + `
	          ORDER BY t.created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	teams := []model.TeamSummary{}
	if err := r.db.SelectContext(ctx, &teams, query, args...); err != nil {
		return nil, 0, mapError("pgTeamRepository.List", err)
	}
	return teams, total, nil
}

func (r *pgTeamRepository) UpdateStatus(ctx context.Context, id string, from, to model.TeamStatus, reviewerID string, notes *string, at time.Time) error {
	query := `UPDATE teams SET status = $3, reviewed_by = $4, review_notes = COALESCE($5, review_notes),
	              reviewed_at = $6, updated_at = $6
	          WHERE id = $1 AND status = $2 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, from, to, reviewerID, notes, at)
	if err != nil {
		return mapError("pgTeamRepository.UpdateStatus", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError("pgTeamRepository.UpdateStatus", err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM teams WHERE id = $1 AND deleted_at IS NULL)`, id); err != nil {
		return mapError("pgTeamRepository.UpdateStatus exists", err)
	}
	if exists {
		return common.ErrConflict
	}
	return common.ErrNotFound
}

// SoftDelete hides the team and frees its members' emails for a new
// registration.
func (r *pgTeamRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapError("pgTeamRepository.SoftDelete begin", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE teams SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return mapError("pgTeamRepository.SoftDelete", err)
	}
	if err := expectAffected("pgTeamRepository.SoftDelete", res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE team_members SET active = FALSE WHERE team_id = $1`, id); err != nil {
		return mapError("pgTeamRepository.SoftDelete members", err)
	}
	return mapError("pgTeamRepository.SoftDelete commit", tx.Commit())
}

func (r *pgTeamRepository) Stats(ctx context.Context) (*model.TeamStats, error) {
	var rows []struct {
		Track  model.Track      `db:"track"`
		Status model.TeamStatus `db:"status"`
		Count  int              `db:"count"`
	}
	query := `SELECT track, status, COUNT(*) AS count FROM teams WHERE deleted_at IS NULL GROUP BY track, status`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, mapError("pgTeamRepository.Stats", err)
	}

	stats := &model.TeamStats{ByStatus: map[model.TeamStatus]int{}, ByTrack: map[model.Track]int{}}
	for _, s := range model.TeamStatuses {
		stats.ByStatus[s] = 0
	}
	for _, t := range model.Tracks {
		stats.ByTrack[t] = 0
	}
	for _, row := range rows {
		stats.Total += row.Count
		stats.ByStatus[row.Status] += row.Count
		stats.ByTrack[row.Track] += row.Count
	}
	return stats, nil
}

func (r *pgTeamRepository) ExportRows(ctx context.Context, filter model.TeamFilter) ([]model.ExportRow, error) {
	where, args := filterClause(filter)
	query := `SELECT t.id AS team_id, t.name AS team_name, t.track, t.status,
	              COALESCE(l.name, '') AS leader_name, COALESCE(l.email, '') AS leader_email,
	              COALESCE(l.phone, '') AS leader_phone, COALESCE(l.college, '') AS college,
	              (SELECT COUNT(*) FROM team_members c WHERE c.team_id = t.id) AS member_count,
	              COALESCE((SELECT STRING_AGG(m.name || ' <' || m.email || '>', '; ' ORDER BY m.name)
	                        FROM team_members m WHERE m.team_id = t.id AND m.role = 'MEMBER'), '') AS members,
	              s.idea_title, s.github_link, s.demo_link, s.judge_score, t.created_at
	          FROM teams t
	          LEFT JOIN team_members l ON l.team_id = t.id AND l.role = 'LEADER'
	          LEFT JOIN submissions s ON s.team_id = t.id` + where + `
	          ORDER BY t.created_at`
	rows := []model.ExportRow{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError("pgTeamRepository.ExportRows", err)
	}
	return rows, nil
}
