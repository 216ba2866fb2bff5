package service

import (
	"context"
	"errors"
	"fmt"
	"hackathon_portal/internal/app/cache"
	"hackathon_portal/internal/common"
	"hackathon_portal/internal/domain/model"
	"hackathon_portal/internal/domain/repository"
	"hackathon_portal/internal/platform/database"
	"hackathon_portal/internal/platform/storage"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	MinTeamMembers = 1
	MaxTeamMembers = 4
)

var (
	ErrEmailNotVerified = common.NewError(common.CodeEmailNotVerified, "Please verify your email before registering")
	ErrDuplicateEmail   = common.NewError(common.CodeDuplicateEmail, "One or more member emails are already registered")
	ErrUploadsDisabled  = common.NewError(common.CodeServiceUnavailable, "File uploads are not available right now")
)

// uploadTypes maps accepted extensions to the content type the object is
// stored with; the client supplied type is ignored.
var uploadTypes = map[string]string{
	".pdf":  "application/pdf",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".zip":  "application/zip",
}

type RegistrationService struct {
	txRunner       database.TxRunner
	userRepo       repository.UserRepository
	teamRepo       repository.TeamRepository
	submissionRepo repository.SubmissionRepository
	objects        storage.ObjectStore
	cache          *cache.Cache
	maxUploadBytes int64
	now            func() time.Time
}

// NewRegistrationService accepts a nil object store, in which case uploads
// fail with SERVICE_UNAVAILABLE.
func NewRegistrationService(txRunner database.TxRunner, userRepo repository.UserRepository, teamRepo repository.TeamRepository,
	submissionRepo repository.SubmissionRepository, objects storage.ObjectStore, c *cache.Cache, maxUploadBytes int64) *RegistrationService {
	return &RegistrationService{
		txRunner:       txRunner,
		userRepo:       userRepo,
		teamRepo:       teamRepo,
		submissionRepo: submissionRepo,
		objects:        objects,
		cache:          c,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

type MemberInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	College string `json:"college"`
}

type SubmissionInput struct {
	IdeaTitle          string `json:"idea_title"`
	ProblemStatement   string `json:"problem_statement"`
	ProposedSolution   string `json:"proposed_solution"`
	TargetUsers        string `json:"target_users"`
	ProblemDescription string `json:"problem_description"`
	TechStack          string `json:"tech_stack"`
	GithubLink         string `json:"github_link"`
	DemoLink           string `json:"demo_link"`
}

type RegisterRequest struct {
	TeamName   string          `json:"team_name"`
	Track      string          `json:"track"`
	Leader     MemberInput     `json:"leader"`
	Members    []MemberInput   `json:"members"`
	Submission SubmissionInput `json:"submission"`
}

func (s *RegistrationService) Register(ctx context.Context, userID string, req RegisterRequest) (*model.Team, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	if _, err := s.teamRepo.FindForUser(ctx, user.ID, user.Email); err == nil {
		return nil, ErrAlreadyRegistered
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing team: %w", err)
	}

	track, err := validateRegistration(&req, user.Email)
	if err != nil {
		return nil, err
	}

	team := buildTeam(req, track, user.ID)
	err = s.txRunner.WithinTx(ctx, func(tx *sqlx.Tx) error {
		return s.teamRepo.Create(ctx, tx, team)
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	invalidateAggregates(ctx, s.cache)
	return team, nil
}

// validateRegistration normalizes emails in place and reports the first
// failing field.
func validateRegistration(req *RegisterRequest, sessionEmail string) (model.Track, error) {
	v := common.NewValidator()
	v.Length("team_name", req.TeamName, 2, 100)
	track, ok := model.ParseTrack(req.Track)
	v.Check(ok, "track", "must be IDEA_SPRINT or BUILD_STORM")

	req.Leader.Email = common.NormalizeEmail(req.Leader.Email)
	if req.Leader.Email == "" {
		req.Leader.Email = sessionEmail
	}
	v.Check(req.Leader.Email == sessionEmail, "leader.email", "must be the verified email of this session")
	validateMember(v, "leader", req.Leader)
	v.Check(len(req.Members)+1 >= MinTeamMembers && len(req.Members)+1 <= MaxTeamMembers,
		"members", fmt.Sprintf("team must have between %d and %d members including the leader", MinTeamMembers, MaxTeamMembers))

	seen := map[string]bool{req.Leader.Email: true}
	for i := range req.Members {
		req.Members[i].Email = common.NormalizeEmail(req.Members[i].Email)
		field := fmt.Sprintf("members[%d]", i)
		validateMember(v, field, req.Members[i])
		v.Check(!seen[req.Members[i].Email], field+".email", "is used by more than one member")
		seen[req.Members[i].Email] = true
	}

	sub := req.Submission
	switch track {
	case model.TrackIdeaSprint:
		v.Length("submission.idea_title", sub.IdeaTitle, 3, 200)
		v.Length("submission.problem_statement", sub.ProblemStatement, 10, 5000)
		v.Length("submission.proposed_solution", sub.ProposedSolution, 10, 5000)
		v.Length("submission.target_users", sub.TargetUsers, 3, 2000)
	case model.TrackBuildStorm:
		v.Length("submission.problem_description", sub.ProblemDescription, 10, 5000)
		v.Length("submission.tech_stack", sub.TechStack, 2, 1000)
		v.URL("submission.github_link", sub.GithubLink)
		v.URL("submission.demo_link", sub.DemoLink)
	}
	return track, v.Err()
}

func validateMember(v *common.Validator, field string, m MemberInput) {
	v.Length(field+".name", m.Name, 2, 100)
	v.Email(field+".email", m.Email)
	v.Phone(field+".phone", m.Phone)
	v.Length(field+".college", m.College, 2, 200)
}

func buildTeam(req RegisterRequest, track model.Track, leaderUserID string) *model.Team {
	teamID := uuid.NewString()
	team := &model.Team{
		ID:           teamID,
		Name:         strings.TrimSpace(req.TeamName),
		Track:        track,
		Status:       model.TeamPending,
		LeaderUserID: &leaderUserID,
	}

	member := func(in MemberInput, role model.MemberRole) model.TeamMember {
		return model.TeamMember{
			ID:      uuid.NewString(),
			TeamID:  teamID,
			Name:    strings.TrimSpace(in.Name),
			Email:   in.Email,
			Phone:   strings.ReplaceAll(in.Phone, " ", ""),
			College: strings.TrimSpace(in.College),
			Role:    role,
		}
	}
	team.Members = append(team.Members, member(req.Leader, model.MemberLeader))
	for _, m := range req.Members {
		team.Members = append(team.Members, member(m, model.MemberOther))
	}

	in := req.Submission
	sub := &model.Submission{ID: uuid.NewString(), TeamID: teamID}
	if track == model.TrackIdeaSprint {
		sub.IdeaTitle = optionalTrimmed(in.IdeaTitle)
		sub.ProblemStatement = optionalTrimmed(in.ProblemStatement)
		sub.ProposedSolution = optionalTrimmed(in.ProposedSolution)
		sub.TargetUsers = optionalTrimmed(in.TargetUsers)
	} else {
		sub.ProblemDescription = optionalTrimmed(in.ProblemDescription)
		sub.TechStack = optionalTrimmed(in.TechStack)
		sub.GithubLink = optionalTrimmed(in.GithubLink)
		sub.DemoLink = optionalTrimmed(in.DemoLink)
	}
	team.Submission = sub
	return team
}

func optionalTrimmed(s string) *string {
	return optional(strings.TrimSpace(s))
}

// MyTeam returns the team of the session's user with submission and files.
func (s *RegistrationService) MyTeam(ctx context.Context, userID string) (*model.Team, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	team, err := s.teamRepo.FindForUser(ctx, user.ID, user.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewError(common.CodeNotFound, "You have not registered a team yet")
		}
		return nil, fmt.Errorf("failed to load team: %w", err)
	}
	return team, nil
}

type UploadRequest struct {
	FileName string
	Size     int64
	Body     io.Reader
}

func (s *RegistrationService) UploadFile(ctx context.Context, userID string, req UploadRequest) (*model.SubmissionFile, error) {
	if s.objects == nil {
		return nil, ErrUploadsDisabled
	}

	ext := strings.ToLower(path.Ext(req.FileName))
	contentType, ok := uploadTypes[ext]
	v := common.NewValidator()
	v.Check(strings.TrimSpace(req.FileName) != "", "file", "is required")
	v.Check(ok, "file", "must be a PDF, PPT, PPTX, PNG, JPEG or ZIP file")
	v.Check(req.Size > 0, "file", "must not be empty")
	v.Check(req.Size <= s.maxUploadBytes, "file", fmt.Sprintf("must be at most %d MB", s.maxUploadBytes>>20))
	if err := v.Err(); err != nil {
		return nil, err
	}

	team, err := s.MyTeam(ctx, userID)
	if err != nil {
		return nil, err
	}
	if team.Submission == nil {
		return nil, common.NewError(common.CodeNotFound, "Team has no submission to attach files to")
	}

	key := storage.ObjectKey(team.ID, req.FileName)
	url, err := s.objects.Put(ctx, key, req.Body, req.Size, contentType)
	if err != nil {
		return nil, common.Wrap(err, common.CodeServiceUnavailable, "Could not store the file, please try again")
	}

	file := &model.SubmissionFile{
		ID:           uuid.NewString(),
		SubmissionID: team.Submission.ID,
		FileName:     path.Base(req.FileName),
		ObjectKey:    key,
		FileURL:      url,
		Size:         req.Size,
		MimeType:     contentType,
		CreatedAt:    s.now(),
	}
	if err := s.submissionRepo.AddFile(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to record file: %w", err)
	}
	return file, nil
}
