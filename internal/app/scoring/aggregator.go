// Package scoring turns raw per-judge, per-criterion points into the
// statistics shown on the analytics dashboard. Everything here is a pure
// function of its input rows.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"hackathon_portal/internal/domain/model"
)

const (
	DefaultConflictThreshold = 15.0
	DefaultMaxConflicts      = 20
	DefaultLeaderboardSize   = 10
	LeniencyThreshold        = 5.0
	DistributionBins         = 10
)

type Leniency string

const (
	Lenient Leniency = "lenient"
	Strict  Leniency = "strict"
	Neutral Leniency = "neutral"
)

type Options struct {
	ConflictThreshold float64
	MaxConflicts      int
	LeaderboardSize   int
}

func DefaultOptions() Options {
	return Options{
		ConflictThreshold: DefaultConflictThreshold,
		MaxConflicts:      DefaultMaxConflicts,
		LeaderboardSize:   DefaultLeaderboardSize,
	}
}

type CriterionStats struct {
	CriterionID string      `json:"criterion_id"`
	Name        string      `json:"name"`
	Track       model.Track `json:"track"`
	Weight      float64     `json:"weight"`
	MaxPoints   float64     `json:"max_points"`
	Count       int         `json:"count"`
	Avg         float64     `json:"avg"`
	Min         float64     `json:"min"`
	Max         float64     `json:"max"`
	StdDev      float64     `json:"std_dev"`
}

type JudgeTotal struct {
	JudgeID   string  `json:"judge_id"`
	JudgeName string  `json:"judge_name"`
	Total     float64 `json:"total"`
}

type JudgeConsistency struct {
	JudgeID     string   `json:"judge_id"`
	JudgeName   string   `json:"judge_name"`
	TeamsScored int      `json:"teams_scored"`
	AvgScore    float64  `json:"avg_score"`
	Bias        float64  `json:"bias"`
	StdDev      float64  `json:"std_dev"`
	Leniency    Leniency `json:"leniency"`
}

type Conflict struct {
	TeamID        string       `json:"team_id"`
	TeamName      string       `json:"team_name"`
	Track         model.Track  `json:"track"`
	MaxDifference float64      `json:"max_difference"`
	JudgeScores   []JudgeTotal `json:"judge_scores"`
}

type Bucket struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

type Report struct {
	TotalTeams   int                      `json:"total_teams"`
	TotalJudges  int                      `json:"total_judges"`
	TotalScores  int                      `json:"total_scores"`
	AverageScore float64                  `json:"average_score"`
	MedianScore  float64                  `json:"median_score"`
	Criteria     []CriterionStats         `json:"criteria"`
	Judges       []JudgeConsistency       `json:"judges"`
	Conflicts    []Conflict               `json:"conflicts"`
	TopTeams     []model.LeaderboardEntry `json:"top_teams"`
	BottomTeams  []model.LeaderboardEntry `json:"bottom_teams"`
	Distribution []Bucket                 `json:"distribution"`
}

// WeightedContribution normalises points to 0-100 and scales by the
// criterion's weight percentage. A criterion without max points contributes 0.
func WeightedContribution(points float64, c model.ScoringCriterion) float64 {
	if c.MaxPoints <= 0 {
		return 0
	}
	return (points / c.MaxPoints) * 100 * c.Weight / 100
}

// JudgeTotals sums each judge's weighted contributions for one submission.
// Scores for criteria missing from the index are ignored. Judges are returned
// in order of first appearance.
func JudgeTotals(scores []model.CriterionScore, criteria map[string]model.ScoringCriterion) []JudgeTotal {
	var totals []JudgeTotal
	pos := make(map[string]int)
	for _, s := range scores {
		c, ok := criteria[s.CriterionID]
		if !ok {
			continue
		}
		i, seen := pos[s.JudgeID]
		if !seen {
			i = len(totals)
			pos[s.JudgeID] = i
			totals = append(totals, JudgeTotal{JudgeID: s.JudgeID, JudgeName: s.JudgeName})
		}
		totals[i].Total += WeightedContribution(s.Points, c)
	}
	return totals
}

// TeamScore is the mean of the judges' weighted totals, rounded to one
// decimal; it is the value cached on the submission as judge_score.
func TeamScore(scores []model.CriterionScore, criteria map[string]model.ScoringCriterion) float64 {
	totals := JudgeTotals(scores, criteria)
	values := make([]float64, len(totals))
	for i, t := range totals {
		values[i] = t.Total
	}
	return Round1(Mean(values))
}

func IndexCriteria(criteria []model.ScoringCriterion) map[string]model.ScoringCriterion {
	idx := make(map[string]model.ScoringCriterion, len(criteria))
	for _, c := range criteria {
		idx[c.ID] = c
	}
	return idx
}

// Aggregate builds the full analytics report for the given teams and the
// active criteria of the selected track(s).
func Aggregate(teams []model.ScoredTeam, criteria []model.ScoringCriterion, opts Options) *Report {
	criteria = sortedCriteria(criteria)
	idx := IndexCriteria(criteria)

	report := &Report{
		TotalTeams: len(teams),
		Criteria:   CriterionStatistics(teams, criteria),
	}

	judges := make(map[string]struct{})
	teamTotals := make(map[string][]JudgeTotal, len(teams))
	for _, t := range teams {
		for _, s := range t.Scores {
			if _, ok := idx[s.CriterionID]; !ok {
				continue
			}
			report.TotalScores++
			judges[s.JudgeID] = struct{}{}
		}
		teamTotals[t.TeamID] = JudgeTotals(t.Scores, idx)
	}
	report.TotalJudges = len(judges)

	report.Judges = JudgeConsistencyStats(teams, teamTotals)
	report.Conflicts = DetectConflicts(teams, teamTotals, opts.ConflictThreshold, opts.MaxConflicts)

	board := Leaderboard(teams, teamTotals)
	report.TopTeams, report.BottomTeams = TopBottom(board, opts.LeaderboardSize)

	scores := make([]float64, len(board))
	for i, e := range board {
		scores[i] = e.Score
	}
	report.AverageScore = Round1(Mean(scores))
	report.MedianScore = Round1(Median(scores))
	report.Distribution = Distribution(scores)
	return report
}

// CriterionStatistics describes the raw points given for each criterion.
// Criteria nobody scored yield all-zero stats.
func CriterionStatistics(teams []model.ScoredTeam, criteria []model.ScoringCriterion) []CriterionStats {
	points := make(map[string][]float64, len(criteria))
	for _, t := range teams {
		for _, s := range t.Scores {
			points[s.CriterionID] = append(points[s.CriterionID], s.Points)
		}
	}

	stats := make([]CriterionStats, 0, len(criteria))
	for _, c := range criteria {
		values := points[c.ID]
		lo, hi := MinMax(values)
		stats = append(stats, CriterionStats{
			CriterionID: c.ID,
			Name:        c.Name,
			Track:       c.Track,
			Weight:      c.Weight,
			MaxPoints:   c.MaxPoints,
			Count:       len(values),
			Avg:         Round1(Mean(values)),
			Min:         Round1(lo),
			Max:         Round1(hi),
			StdDev:      Round1(PopulationStdDev(values)),
		})
	}
	return stats
}

// JudgeConsistencyStats compares every judge's average weighted total with the
// grand mean of all weighted totals.
func JudgeConsistencyStats(teams []model.ScoredTeam, teamTotals map[string][]JudgeTotal) []JudgeConsistency {
	perJudge := make(map[string][]float64)
	names := make(map[string]string)
	var all []float64
	for _, t := range teams {
		for _, jt := range teamTotals[t.TeamID] {
			perJudge[jt.JudgeID] = append(perJudge[jt.JudgeID], jt.Total)
			names[jt.JudgeID] = jt.JudgeName
			all = append(all, jt.Total)
		}
	}
	grand := Mean(all)

	out := make([]JudgeConsistency, 0, len(perJudge))
	for judgeID, totals := range perJudge {
		avg := Mean(totals)
		bias := avg - grand
		leniency := Neutral
		switch {
		case bias > LeniencyThreshold:
			leniency = Lenient
		case bias < -LeniencyThreshold:
			leniency = Strict
		}
		out = append(out, JudgeConsistency{
			JudgeID:     judgeID,
			JudgeName:   names[judgeID],
			TeamsScored: len(totals),
			AvgScore:    Round1(avg),
			Bias:        Round1(bias),
			StdDev:      Round1(PopulationStdDev(totals)),
			Leniency:    leniency,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JudgeName != out[j].JudgeName {
			return out[i].JudgeName < out[j].JudgeName
		}
		return out[i].JudgeID < out[j].JudgeID
	})
	return out
}

// DetectConflicts flags teams whose judges' totals differ pairwise by more
// than threshold. Results are sorted by the largest difference and capped at
// limit (limit <= 0 means no cap).
func DetectConflicts(teams []model.ScoredTeam, teamTotals map[string][]JudgeTotal, threshold float64, limit int) []Conflict {
	conflicts := []Conflict{}
	for _, t := range teams {
		totals := teamTotals[t.TeamID]
		var maxDiff float64
		for i := 0; i < len(totals); i++ {
			for j := i + 1; j < len(totals); j++ {
				if d := math.Abs(totals[i].Total - totals[j].Total); d > maxDiff {
					maxDiff = d
				}
			}
		}
		if maxDiff <= threshold {
			continue
		}
		judgeScores := make([]JudgeTotal, len(totals))
		for i, jt := range totals {
			judgeScores[i] = JudgeTotal{JudgeID: jt.JudgeID, JudgeName: jt.JudgeName, Total: Round1(jt.Total)}
		}
		sort.SliceStable(judgeScores, func(i, j int) bool { return judgeScores[i].Total > judgeScores[j].Total })
		conflicts = append(conflicts, Conflict{
			TeamID:        t.TeamID,
			TeamName:      t.TeamName,
			Track:         t.Track,
			MaxDifference: Round1(maxDiff),
			JudgeScores:   judgeScores,
		})
	}
	sort.SliceStable(conflicts, func(i, j int) bool { return conflicts[i].MaxDifference > conflicts[j].MaxDifference })
	if limit > 0 && len(conflicts) > limit {
		conflicts = conflicts[:limit]
	}
	return conflicts
}

// Leaderboard ranks teams by their stored judge score. A team whose stored
// score is missing falls back to the mean recomputed from its raw scores.
func Leaderboard(teams []model.ScoredTeam, teamTotals map[string][]JudgeTotal) []model.LeaderboardEntry {
	board := make([]model.LeaderboardEntry, 0, len(teams))
	for _, t := range teams {
		totals := teamTotals[t.TeamID]
		var score float64
		if t.JudgeScore != nil {
			score = *t.JudgeScore
		} else {
			values := make([]float64, len(totals))
			for i, jt := range totals {
				values[i] = jt.Total
			}
			score = Mean(values)
		}
		board = append(board, model.LeaderboardEntry{
			TeamID:     t.TeamID,
			TeamName:   t.TeamName,
			Track:      t.Track,
			Score:      Round1(score),
			JudgeCount: distinctJudges(t.Scores),
		})
	}
	sort.SliceStable(board, func(i, j int) bool {
		if board[i].Score != board[j].Score {
			return board[i].Score > board[j].Score
		}
		return board[i].TeamName < board[j].TeamName
	})
	for i := range board {
		board[i].Rank = i + 1
	}
	return board
}

// TopBottom slices a ranked board. Bottom entries are listed lowest first.
func TopBottom(board []model.LeaderboardEntry, n int) ([]model.LeaderboardEntry, []model.LeaderboardEntry) {
	if n <= 0 || n > len(board) {
		n = len(board)
	}
	top := append([]model.LeaderboardEntry{}, board[:n]...)
	bottom := make([]model.LeaderboardEntry, 0, n)
	for i := len(board) - 1; i >= len(board)-n; i-- {
		bottom = append(bottom, board[i])
	}
	return top, bottom
}

// Distribution buckets scores into ten bins of width 10; the last bin also
// holds 100 (and anything above it), negatives land in the first.
func Distribution(scores []float64) []Bucket {
	buckets := make([]Bucket, DistributionBins)
	for i := range buckets {
		lo, hi := i*10, (i+1)*10
		buckets[i] = Bucket{Label: fmt.Sprintf("%d-%d", lo, hi), Min: float64(lo), Max: float64(hi)}
	}
	for _, s := range scores {
		i := int(math.Floor(s / 10))
		if i < 0 {
			i = 0
		}
		if i >= DistributionBins {
			i = DistributionBins - 1
		}
		buckets[i].Count++
	}
	return buckets
}

func distinctJudges(scores []model.CriterionScore) int {
	seen := make(map[string]struct{})
	for _, s := range scores {
		seen[s.JudgeID] = struct{}{}
	}
	return len(seen)
}

func sortedCriteria(criteria []model.ScoringCriterion) []model.ScoringCriterion {
	out := append([]model.ScoringCriterion{}, criteria...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Track != out[j].Track {
			return out[i].Track < out[j].Track
		}
		return out[i].DisplayOrder < out[j].DisplayOrder
	})
	return out
}
