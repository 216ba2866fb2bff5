package model

import "time"

// ScoringCriterion is one weighted rubric dimension of a track. Weight is the
// percentage the criterion contributes to a judge's total.
type ScoringCriterion struct {
	ID           string    `json:"id" db:"id"`
	Track        Track     `json:"track" db:"track"`
	Name         string    `json:"name" db:"name"`
	Description  *string   `json:"description,omitempty" db:"description"`
	Weight       float64   `json:"weight" db:"weight"`
	MaxPoints    float64   `json:"max_points" db:"max_points"`
	Active       bool      `json:"active" db:"active"`
	DisplayOrder int       `json:"display_order" db:"display_order"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// CriterionScore is one judge's points for one criterion of one submission.
// JudgeName is copied from the admin row at write time so reports do not
// join admins.
type CriterionScore struct {
	ID           string    `json:"id" db:"id"`
	SubmissionID string    `json:"submission_id" db:"submission_id"`
	JudgeID      string    `json:"judge_id" db:"judge_id"`
	JudgeName    string    `json:"judge_name" db:"judge_name"`
	CriterionID  string    `json:"criterion_id" db:"criterion_id"`
	Points       float64   `json:"points" db:"points"`
	Comment      *string   `json:"comment,omitempty" db:"comment"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ScoredTeam is an approved team together with every score row recorded for
// its submission; it is the input of the scoring aggregator.
type ScoredTeam struct {
	TeamID       string           `json:"team_id" db:"team_id"`
	TeamName     string           `json:"team_name" db:"team_name"`
	Track        Track            `json:"track" db:"track"`
	SubmissionID string           `json:"submission_id" db:"submission_id"`
	JudgeScore   *float64         `json:"judge_score" db:"judge_score"`
	Scores       []CriterionScore `json:"scores" db:"-"`
}

// JudgeTeam is a row of the judge panel: an approved team and whether the
// requesting judge has already scored it.
type JudgeTeam struct {
	TeamID       string `json:"team_id" db:"team_id"`
	TeamName     string `json:"team_name" db:"team_name"`
	Track        Track  `json:"track" db:"track"`
	SubmissionID string `json:"submission_id" db:"submission_id"`
	ScoredByMe   bool   `json:"scored_by_me" db:"scored_by_me"`
	JudgeCount   int    `json:"judge_count" db:"judge_count"`
}
