package model

import (
	"strings"
	"time"
)

type Track string

const (
	TrackIdeaSprint Track = "IDEA_SPRINT"
	TrackBuildStorm Track = "BUILD_STORM"
)

var Tracks = []Track{TrackIdeaSprint, TrackBuildStorm}

func (t Track) Valid() bool {
	return t == TrackIdeaSprint || t == TrackBuildStorm
}

// ParseTrack accepts the canonical form as well as lower-case and
// dash-separated spellings used in query strings.
func ParseTrack(s string) (Track, bool) {
	t := Track(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	return t, t.Valid()
}

type TeamStatus string

const (
	TeamPending     TeamStatus = "PENDING"
	TeamUnderReview TeamStatus = "UNDER_REVIEW"
	TeamApproved    TeamStatus = "APPROVED"
	TeamRejected    TeamStatus = "REJECTED"
	TeamWaitlisted  TeamStatus = "WAITLISTED"
	TeamWithdrawn   TeamStatus = "WITHDRAWN"
)

var TeamStatuses = []TeamStatus{TeamPending, TeamUnderReview, TeamApproved, TeamRejected, TeamWaitlisted, TeamWithdrawn}

var teamTransitions = map[TeamStatus][]TeamStatus{
	TeamPending:     {TeamUnderReview, TeamApproved, TeamRejected, TeamWaitlisted, TeamWithdrawn},
	TeamUnderReview: {TeamApproved, TeamRejected, TeamWaitlisted, TeamWithdrawn},
	TeamWaitlisted:  {TeamApproved, TeamRejected, TeamWithdrawn},
	TeamApproved:    {TeamWithdrawn, TeamRejected},
	TeamRejected:    {TeamUnderReview},
}

func (s TeamStatus) Valid() bool {
	for _, st := range TeamStatuses {
		if st == s {
			return true
		}
	}
	return false
}

func (s TeamStatus) CanTransitionTo(next TeamStatus) bool {
	for _, allowed := range teamTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type MemberRole string

const (
	MemberLeader MemberRole = "LEADER"
	MemberOther  MemberRole = "MEMBER"
)

type Team struct {
	ID           string       `json:"id" db:"id"`
	Name         string       `json:"name" db:"name"`
	Track        Track        `json:"track" db:"track"`
	Status       TeamStatus   `json:"status" db:"status"`
	LeaderUserID *string      `json:"leader_user_id,omitempty" db:"leader_user_id"`
	ReviewNotes  *string      `json:"review_notes,omitempty" db:"review_notes"`
	ReviewedBy   *string      `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt   *time.Time   `json:"reviewed_at,omitempty" db:"reviewed_at"`
	DeletedAt    *time.Time   `json:"-" db:"deleted_at"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
	Members      []TeamMember `json:"members,omitempty" db:"-"`
	Submission   *Submission  `json:"submission,omitempty" db:"-"`
}

type TeamMember struct {
	ID      string     `json:"id" db:"id"`
	TeamID  string     `json:"team_id" db:"team_id"`
	Name    string     `json:"name" db:"name"`
	Email   string     `json:"email" db:"email"`
	Phone   string     `json:"phone" db:"phone"`
	College string     `json:"college" db:"college"`
	Role    MemberRole `json:"role" db:"role"`
}

// TeamSummary is the row shape of admin team listings.
type TeamSummary struct {
	Team
	LeaderName  string   `json:"leader_name" db:"leader_name"`
	LeaderEmail string   `json:"leader_email" db:"leader_email"`
	MemberCount int      `json:"member_count" db:"member_count"`
	JudgeScore  *float64 `json:"judge_score,omitempty" db:"judge_score"`
}

type TeamFilter struct {
	Status *TeamStatus
	Track  *Track
	Search string
	Limit  int
	Offset int
}

type TeamStats struct {
	Total    int                `json:"total"`
	ByStatus map[TeamStatus]int `json:"by_status"`
	ByTrack  map[Track]int      `json:"by_track"`
}

// ExportRow is one line of the team CSV export.
type ExportRow struct {
	TeamID      string     `db:"team_id"`
	TeamName    string     `db:"team_name"`
	Track       Track      `db:"track"`
	Status      TeamStatus `db:"status"`
	LeaderName  string     `db:"leader_name"`
	LeaderEmail string     `db:"leader_email"`
	LeaderPhone string     `db:"leader_phone"`
	College     string     `db:"college"`
	MemberCount int        `db:"member_count"`
	Members     string     `db:"members"`
	IdeaTitle   *string    `db:"idea_title"`
	GithubLink  *string    `db:"github_link"`
	DemoLink    *string    `db:"demo_link"`
	JudgeScore  *float64   `db:"judge_score"`
	CreatedAt   time.Time  `db:"created_at"`
}
