package service

import (
	"context"
	"errors"
	"fmt"
	"hackathon_portal/internal/app/cache"
	"hackathon_portal/internal/common"
	"hackathon_portal/internal/domain/model"
	"hackathon_portal/internal/domain/repository"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	statsCacheTTL   = time.Minute
)

type TeamService struct {
	teamRepo  repository.TeamRepository
	scoreRepo repository.ScoreRepository
	cache     *cache.Cache
	now       func() time.Time
}

func NewTeamService(teamRepo repository.TeamRepository, scoreRepo repository.ScoreRepository, c *cache.Cache) *TeamService {
	return &TeamService{teamRepo: teamRepo, scoreRepo: scoreRepo, cache: c, now: time.Now}
}

type TeamQuery struct {
	Status string
	Track  string
	Search string
	Page   int
	Limit  int
}

type TeamPage struct {
	Teams []model.TeamSummary `json:"teams"`
	Total int                 `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

// Filter validates the query parameters and converts them to a repository
// filter. Page and limit are clamped rather than rejected.
func (q TeamQuery) Filter() (model.TeamFilter, error) {
	var f model.TeamFilter
	if q.Status != "" {
		st := model.TeamStatus(strings.ToUpper(q.Status))
		if !st.Valid() {
			return f, common.Validationf("status %q is not a valid team status", q.Status)
		}
		f.Status = &st
	}
	if q.Track != "" {
		tr, ok := model.ParseTrack(q.Track)
		if !ok {
			return f, common.Validationf("track %q is not a valid track", q.Track)
		}
		f.Track = &tr
	}
	f.Search = strings.TrimSpace(q.Search)

	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	f.Limit = q.Limit
	f.Offset = (q.Page - 1) * q.Limit
	return f, nil
}

func (s *TeamService) List(ctx context.Context, q TeamQuery) (*TeamPage, error) {
	filter, err := q.Filter()
	if err != nil {
		return nil, err
	}
	teams, total, err := s.teamRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return &TeamPage{Teams: teams, Total: total, Page: filter.Offset/filter.Limit + 1, Limit: filter.Limit}, nil
}

type TeamDetail struct {
	*model.Team
	Scores []model.CriterionScore `json:"scores"`
}

func (s *TeamService) Get(ctx context.Context, id string) (*TeamDetail, error) {
	team, err := s.teamRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &TeamDetail{Team: team, Scores: []model.CriterionScore{}}
	if team.Submission != nil {
		scores, err := s.scoreRepo.ListBySubmission(ctx, nil, team.Submission.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load scores: %w", err)
		}
		detail.Scores = scores
	}
	return detail, nil
}

type StatusUpdateRequest struct {
	Status model.TeamStatus `json:"status"`
	Notes  *string          `json:"notes"`
}

func (s *TeamService) UpdateStatus(ctx context.Context, id string, req StatusUpdateRequest, reviewer *model.Admin) (*model.Team, error) {
	next := model.TeamStatus(strings.ToUpper(string(req.Status)))
	if !next.Valid() {
		return nil, common.Validationf("status %q is not a valid team status", req.Status)
	}
	if req.Notes != nil && len(*req.Notes) > 2000 {
		return nil, common.Validationf("notes must be at most 2000 characters")
	}

	team, err := s.teamRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !team.Status.CanTransitionTo(next) {
		return nil, common.NewError(common.CodeConflict,
			fmt.Sprintf("Cannot change status from %s to %s", team.Status, next))
	}

	now := s.now()
	if err := s.teamRepo.UpdateStatus(ctx, id, team.Status, next, reviewer.ID, req.Notes, now); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.NewError(common.CodeConflict,
				"Team status was changed by someone else, reload and try again")
		}
		return nil, err
	}
	invalidateAggregates(ctx, s.cache)

	team.Status = next
	team.ReviewedBy = &reviewer.ID
	team.ReviewedAt = &now
	team.UpdatedAt = now
	if req.Notes != nil {
		team.ReviewNotes = req.Notes
	}
	return team, nil
}

func (s *TeamService) Delete(ctx context.Context, id string) error {
	if err := s.teamRepo.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}
	invalidateAggregates(ctx, s.cache)
	return nil
}

func (s *TeamService) Stats(ctx context.Context) (*model.TeamStats, error) {
	return cache.GetOrLoad(ctx, s.cache, statsCacheKey, statsCacheTTL, func(ctx context.Context) (*model.TeamStats, error) {
		return s.teamRepo.Stats(ctx)
	})
}

var exportHeader = []string{
	"Team ID", "Team Name", "Track", "Status", "Leader Name", "Leader Email", "Leader Phone", "College",
	"Member Count", "Members", "Idea Title", "GitHub", "Demo", "Judge Score", "Registered At",
}

// Export writes the filtered teams as CSV and returns the number of data rows.
// Pagination fields of q are ignored.
func (s *TeamService) Export(ctx context.Context, w io.Writer, q TeamQuery) (int, error) {
	filter, err := q.Filter()
	if err != nil {
		return 0, err
	}
	filter.Limit, filter.Offset = 0, 0

	rows, err := s.teamRepo.ExportRows(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to load export rows: %w", err)
	}

	cw := common.NewCSVWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, err
	}
	for _, r := range rows {
		score := ""
		if r.JudgeScore != nil {
			score = strconv.FormatFloat(*r.JudgeScore, 'f', 1, 64)
		}
		record := []string{
			r.TeamID, r.TeamName, string(r.Track), string(r.Status), r.LeaderName, r.LeaderEmail, r.LeaderPhone,
			r.College, strconv.Itoa(r.MemberCount), r.Members, deref(r.IdeaTitle), deref(r.GithubLink),
			deref(r.DemoLink), score, r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return 0, err
		}
	}
	return len(rows), cw.Flush()
}

// ExportFileName is a slug of the filter plus the date, e.g.
// teams-build-storm-approved-2025-03-01.csv.
func (s *TeamService) ExportFileName(q TeamQuery) string {
	parts := []string{"teams"}
	if q.Track != "" {
		parts = append(parts, q.Track)
	}
	if q.Status != "" {
		parts = append(parts, q.Status)
	}
	parts = append(parts, s.now().UTC().Format("2006-01-02"))
	return slug.Make(strings.ReplaceAll(strings.Join(parts, " "), "_", " ")) + ".csv"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// teamForJudging loads an approved team. Teams in any other state are
// reported as not found so judges cannot probe the review queue.
func teamForJudging(ctx context.Context, repo repository.TeamRepository, id string) (*model.Team, error) {
	team, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if team.Status != model.TeamApproved {
		return nil, common.ErrNotFound
	}
	if team.Submission == nil {
		return nil, common.NewError(common.CodeNotFound, "Team has no submission to judge")
	}
	return team, nil
}
