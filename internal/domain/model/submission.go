package model

import "time"

// Submission holds the track specific answers of a team. Only the fields of
// the team's track are filled.
type Submission struct {
	ID                 string           `json:"id" db:"id"`
	TeamID             string           `json:"team_id" db:"team_id"`
	IdeaTitle          *string          `json:"idea_title,omitempty" db:"idea_title"`
	ProblemStatement   *string          `json:"problem_statement,omitempty" db:"problem_statement"`
	ProposedSolution   *string          `json:"proposed_solution,omitempty" db:"proposed_solution"`
	TargetUsers        *string          `json:"target_users,omitempty" db:"target_users"`
	ProblemDescription *string          `json:"problem_description,omitempty" db:"problem_description"`
	TechStack          *string          `json:"tech_stack,omitempty" db:"tech_stack"`
	GithubLink         *string          `json:"github_link,omitempty" db:"github_link"`
	DemoLink           *string          `json:"demo_link,omitempty" db:"demo_link"`
	JudgeScore         *float64         `json:"judge_score,omitempty" db:"judge_score"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at" db:"updated_at"`
	Files              []SubmissionFile `json:"files,omitempty" db:"-"`
}

type SubmissionFile struct {
	ID           string    `json:"id" db:"id"`
	SubmissionID string    `json:"submission_id" db:"submission_id"`
	FileName     string    `json:"file_name" db:"file_name"`
	ObjectKey    string    `json:"-" db:"object_key"`
	FileURL      string    `json:"file_url" db:"file_url"`
	Size         int64     `json:"size" db:"size"`
	MimeType     string    `json:"mime_type" db:"mime_type"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
