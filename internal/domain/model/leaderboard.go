package model

type LeaderboardEntry struct {
	Rank       int     `json:"rank"`
	TeamID     string  `json:"team_id"`
	TeamName   string  `json:"team_name"`
	Track      Track   `json:"track"`
	Score      float64 `json:"score"`
	JudgeCount int     `json:"judge_count"`
}
