package upstream

import "encoding/json"

// Fixture is one live fixture as delivered by the feed. Score, minute
// and statistics fields are frequently null mid-update; consumers
// normalize them at the ingestion boundary.
type Fixture struct {
	ID     int64         `json:"id"`
	Status FixtureStatus `json:"status"`
	League League        `json:"league"`
	Teams  Teams         `json:"teams"`
	Goals  Goals         `json:"goals"`
	Events []Event       `json:"events"`
	Stats  []TeamStats   `json:"statistics"`
}

type FixtureStatus struct {
	Code    string `json:"short"`
	Elapsed *int   `json:"elapsed"`
}

type League struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Teams struct {
	Home Team `json:"home"`
	Away Team `json:"away"`
}

type Team struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Goals struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

// Event is one timeline entry (goals, cards, substitutions).
type Event struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
	Team   Team   `json:"team"`
	Minute *int   `json:"minute"`
}

// TeamStats is the per-team block of the fixture statistics list.
type TeamStats struct {
	Team  Team        `json:"team"`
	Items []StatValue `json:"items"`
}

// StatValue is a single named statistic. Value may be a number, a
// percentage string ("58%") or null.
type StatValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// FixturesResponse is the live fixtures list envelope.
type FixturesResponse struct {
	Fixtures []Fixture `json:"response"`
}

// OddsQuote is an in-play odds payload for one fixture.
type OddsQuote struct {
	FixtureID int64           `json:"fixture_id"`
	Bookmaker string          `json:"bookmaker"`
	Home      float64         `json:"home"`
	Draw      float64         `json:"draw"`
	Away      float64         `json:"away"`
	Handicap  *HandicapMarket `json:"handicap,omitempty"`
}

// HandicapMarket is the live Asian handicap block of an odds payload.
type HandicapMarket struct {
	Line      float64 `json:"line"`
	Home      float64 `json:"home"`
	Away      float64 `json:"away"`
	Suspended bool    `json:"suspended"`
}

// OddsResponse is the odds endpoint envelope.
type OddsResponse struct {
	Odds []OddsQuote `json:"response"`
}
