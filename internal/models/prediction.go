package models

import (
	"time"
)

// SnapshotRecord is one persisted prediction snapshot row. The
// (MatchID, Minute, HomeScore, AwayScore) tuple is the upsert key.
type SnapshotRecord struct {
	ID          int64          `json:"id"`
	MatchID     string         `json:"match_id"`
	HomeTeam    string         `json:"home_team"`
	AwayTeam    string         `json:"away_team"`
	League      string         `json:"league"`
	HomeScore   int            `json:"home_score"`
	AwayScore   int            `json:"away_score"`
	Minute      int            `json:"minute"`
	Status      MatchStatus    `json:"status"`
	HomeWinProb float64        `json:"home_win_prob"`
	DrawProb    float64        `json:"draw_prob"`
	AwayWinProb float64        `json:"away_win_prob"`
	Confidence  float64        `json:"confidence"`
	Algorithm   string         `json:"algorithm"`
	Features    map[string]any `json:"features,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// MatchOutcome is the settled 1X2 result of a finished match.
type MatchOutcome string

const (
	OutcomeHomeWin MatchOutcome = "home_win"
	OutcomeDraw    MatchOutcome = "draw"
	OutcomeAwayWin MatchOutcome = "away_win"
)

// OutcomeForScore maps a final score to its 1X2 outcome.
func OutcomeForScore(home, away int) MatchOutcome {
	switch {
	case home > away:
		return OutcomeHomeWin
	case home < away:
		return OutcomeAwayWin
	default:
		return OutcomeDraw
	}
}

// MatchResult is the once-written final result row for a match.
type MatchResult struct {
	MatchID    string       `json:"match_id"`
	HomeTeam   string       `json:"home_team"`
	AwayTeam   string       `json:"away_team"`
	League     string       `json:"league"`
	HomeScore  int          `json:"home_score"`
	AwayScore  int          `json:"away_score"`
	Outcome    MatchOutcome `json:"outcome"`
	FinishedAt time.Time    `json:"finished_at"`
}

// AccuracyBucket aggregates prediction hit rate for one confidence band.
type AccuracyBucket struct {
	Bucket  string  `json:"bucket"`
	Total   int64   `json:"total"`
	Correct int64   `json:"correct"`
	HitRate float64 `json:"hit_rate"`
}

// AccuracyStats summarizes model accuracy over recent resolved matches.
type AccuracyStats struct {
	Matches      int64            `json:"matches"`
	Correct      int64            `json:"correct"`
	HitRate      float64          `json:"hit_rate"`
	ByOutcome    map[string]int64 `json:"by_outcome"`
	ByConfidence []AccuracyBucket `json:"by_confidence"`
	OldestResult *time.Time       `json:"oldest_result,omitempty"`
	NewestResult *time.Time       `json:"newest_result,omitempty"`
}

// StoreSummary is the row-count / time-range overview of the store.
type StoreSummary struct {
	SnapshotCount  int64      `json:"snapshot_count"`
	ResultCount    int64      `json:"result_count"`
	TrackedMatches int64      `json:"tracked_matches"`
	OldestSnapshot *time.Time `json:"oldest_snapshot,omitempty"`
	NewestSnapshot *time.Time `json:"newest_snapshot,omitempty"`
}
