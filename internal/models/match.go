package models

import (
	"time"
)

// MatchStatus is the normalized lifecycle state of a fixture.
type MatchStatus string

const (
	StatusNotStarted MatchStatus = "not_started"
	StatusLive       MatchStatus = "live"
	StatusHalftime   MatchStatus = "halftime"
	StatusFinished   MatchStatus = "finished"
)

// InPlay reports whether the clock is running or paused mid-match.
func (s MatchStatus) InPlay() bool {
	return s == StatusLive || s == StatusHalftime
}

// TeamStats holds the cumulative in-match counters for one side.
// Counters are monotonic non-decreasing over the life of a match.
type TeamStats struct {
	Possession       float64 `json:"possession"`
	ShotsOnTarget    int     `json:"shots_on_target"`
	ShotsOffTarget   int     `json:"shots_off_target"`
	Corners          int     `json:"corners"`
	DangerousAttacks int     `json:"dangerous_attacks"`
	RedCards         int     `json:"red_cards"`
}

// LiveMatch is the fully-populated internal record for one fixture.
// Every optional upstream field has been defaulted at the ingestion
// boundary, so consumers never need nil checks on telemetry.
type LiveMatch struct {
	ID        string      `json:"id"`
	HomeTeam  string      `json:"home_team"`
	AwayTeam  string      `json:"away_team"`
	League    string      `json:"league"`
	HomeScore int         `json:"home_score"`
	AwayScore int         `json:"away_score"`
	Minute    int         `json:"minute"`
	Status    MatchStatus `json:"status"`
	HomeStats TeamStats   `json:"home_stats"`
	AwayStats TeamStats   `json:"away_stats"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TotalGoals returns the current combined score.
func (m *LiveMatch) TotalGoals() int {
	return m.HomeScore + m.AwayScore
}

// ActivityDelta is the change in one side's counters over the recent
// activity window. Values are clamped to zero, never negative.
type ActivityDelta struct {
	ShotsOnTarget    int `json:"shots_on_target"`
	ShotsOffTarget   int `json:"shots_off_target"`
	Corners          int `json:"corners"`
	DangerousAttacks int `json:"dangerous_attacks"`
}

// RecentActivity carries both sides' windowed deltas. Windowed is false
// until the stats history is deep enough to cover the window, in which
// case the deltas hold full-match totals instead.
type RecentActivity struct {
	Home     ActivityDelta `json:"home"`
	Away     ActivityDelta `json:"away"`
	Windowed bool          `json:"windowed"`
}

// MatchEventType classifies a detected change between two polls.
type MatchEventType string

const (
	EventGoal         MatchEventType = "goal"
	EventStatusChange MatchEventType = "status_change"
	EventScoreUpdate  MatchEventType = "score_update"
)

// MatchEvent is the score/status change event published to subscribers.
type MatchEvent struct {
	ID        string         `json:"id"`
	MatchID   string         `json:"match_id"`
	Type      MatchEventType `json:"type"`
	HomeTeam  string         `json:"home_team"`
	AwayTeam  string         `json:"away_team"`
	HomeScore int            `json:"home_score"`
	AwayScore int            `json:"away_score"`
	Minute    int            `json:"minute"`
	Status    MatchStatus    `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
}
