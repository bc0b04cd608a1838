package engine

import (
	"github.com/shopspring/decimal"

	"github.com/oddscope/matchpulse/internal/models"
)

// SignalType classifies the model-vs-market edge on one selection.
type SignalType string

const (
	SignalValueBet SignalType = "VALUE_BET"
	SignalNoValue  SignalType = "NO_VALUE"
	SignalAvoid    SignalType = "AVOID"
)

const (
	valueBetEdge = 0.05
	avoidEdge    = -0.10

	kellyFraction = 0.25
	kellyCap      = 0.05
)

// ValueSignal is the classification of one 1X2 selection.
type ValueSignal struct {
	Market     string          `json:"market"`
	Selection  string          `json:"selection"`
	ModelProb  float64         `json:"model_prob"`
	MarketOdds decimal.Decimal `json:"market_odds"`
	FairOdds   decimal.Decimal `json:"fair_odds"`
	Edge       float64         `json:"edge"`
	Signal     SignalType      `json:"signal"`
	KellyStake float64         `json:"kelly_stake"`
}

// EvaluateOneXTwo classifies each 1X2 selection by the proportional gap
// between the quoted price and the model's fair price. VALUE_BET
// signals carry a quarter-Kelly stake capped at 5% of bankroll.
func EvaluateOneXTwo(res *PredictionResult, odds *models.MatchOdds) []ValueSignal {
	if res == nil || odds == nil {
		return nil
	}
	return []ValueSignal{
		evaluate("home", res.HomeWin, odds.Home),
		evaluate("draw", res.Draw, odds.Draw),
		evaluate("away", res.AwayWin, odds.Away),
	}
}

func evaluate(selection string, prob float64, market decimal.Decimal) ValueSignal {
	s := ValueSignal{
		Market:     "1x2",
		Selection:  selection,
		ModelProb:  prob,
		MarketOdds: market,
	}
	if prob <= 0 {
		s.Signal = SignalNoValue
		return s
	}
	fair := 1 / prob
	s.FairOdds = decimal.NewFromFloat(fair).Round(3)
	s.Edge = market.InexactFloat64()/fair - 1

	switch {
	case s.Edge >= valueBetEdge:
		s.Signal = SignalValueBet
		s.KellyStake = kellyStake(prob, market.InexactFloat64())
	case s.Edge <= avoidEdge:
		s.Signal = SignalAvoid
	default:
		s.Signal = SignalNoValue
	}
	return s
}

// kellyStake is the fractional Kelly criterion stake for a back bet at
// decimal odds: f = (p·b − q)/b with b the net odds.
func kellyStake(prob, odds float64) float64 {
	b := odds - 1
	if b <= 0 {
		return 0
	}
	f := (prob*b - (1 - prob)) / b
	if f <= 0 {
		return 0
	}
	stake := f * kellyFraction
	if stake > kellyCap {
		stake = kellyCap
	}
	return stake
}
