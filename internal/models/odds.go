package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchOdds is a bookmaker 1X2 quote for one fixture.
type MatchOdds struct {
	MatchID   string          `json:"match_id"`
	Home      decimal.Decimal `json:"home"`
	Draw      decimal.Decimal `json:"draw"`
	Away      decimal.Decimal `json:"away"`
	Bookmaker string          `json:"bookmaker,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// HandicapQuote is a live Asian handicap market quote. Line is quoted
// from the home perspective relative to the current score.
type HandicapQuote struct {
	MatchID   string          `json:"match_id"`
	Line      float64         `json:"line"`
	Home      decimal.Decimal `json:"home"`
	Away      decimal.Decimal `json:"away"`
	Suspended bool            `json:"suspended"`
	FetchedAt time.Time       `json:"fetched_at"`
}
