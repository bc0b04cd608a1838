package engine

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/oddscope/matchpulse/internal/models"
)

const (
	overUnderEdge     = 0.15
	nextGoalThreshold = 0.45
	handicapMinProb   = 0.50
	handicapMinEdge   = 0.03
	advisoryMaxMinute = 85
	advisoryMinConf   = 0.6
)

// OverUnderLine is the priced total-goals market at one line, on the
// projected full-time total.
type OverUnderLine struct {
	Line        float64 `json:"line"`
	Over        float64 `json:"over"`
	Under       float64 `json:"under"`
	Recommended string  `json:"recommended,omitempty"` // "over" or "under"
}

// NextGoalForecast is the distribution over which side scores next.
type NextGoalForecast struct {
	Home        float64 `json:"home"`
	Away        float64 `json:"away"`
	None        float64 `json:"none"`
	Recommended string  `json:"recommended,omitempty"` // "home" or "away"
}

// HandicapAdvice is the value assessment of a quoted live handicap.
type HandicapAdvice struct {
	Line         float64         `json:"line"`
	HomeWinProb  float64         `json:"home_win_prob"`
	AwayWinProb  float64         `json:"away_win_prob"`
	HomeFairOdds decimal.Decimal `json:"home_fair_odds"`
	AwayFairOdds decimal.Decimal `json:"away_fair_odds"`
	HomeEdge     float64         `json:"home_edge"`
	AwayEdge     float64         `json:"away_edge"`
	Side         string          `json:"side,omitempty"` // "home" or "away", empty if none
}

// Advisory is the single headline betting suggestion for a match.
type Advisory struct {
	Market      string  `json:"market"` // "over_under" or "next_goal"
	Selection   string  `json:"selection"`
	Line        float64 `json:"line,omitempty"`
	Probability float64 `json:"probability"`
}

// PredictionBundle is a model evaluation plus the goal-market pricing
// derived from the same score matrix.
type PredictionBundle struct {
	Result    *PredictionResult `json:"result"`
	OverUnder []OverUnderLine   `json:"over_under"`
	NextGoal  NextGoalForecast  `json:"next_goal"`
	Handicap  *HandicapAdvice   `json:"handicap,omitempty"`
	Headline  *Advisory         `json:"headline,omitempty"`
}

// GoalPredictor prices goal markets off its host match's win-probability
// model. It must be handed the host's model instance, never construct a
// private one: a private copy silently desynchronizes momentum history
// from the win-probability numbers.
type GoalPredictor struct {
	model  *WinProbabilityModel
	pricer *HandicapPricer
}

func NewGoalPredictor(model *WinProbabilityModel, pricer *HandicapPricer) *GoalPredictor {
	return &GoalPredictor{model: model, pricer: pricer}
}

// Model returns the shared win-probability model.
func (g *GoalPredictor) Model() *WinProbabilityModel {
	return g.model
}

// Predict runs one model evaluation and derives the full goal-market
// bundle from it. quote may be nil when no live handicap is available.
func (g *GoalPredictor) Predict(match *models.LiveMatch, recent *models.RecentActivity, quote *models.HandicapQuote) (*PredictionBundle, error) {
	res, err := g.model.Predict(match, recent)
	if err != nil {
		return nil, err
	}

	bundle := &PredictionBundle{
		Result:    res,
		OverUnder: overUnderLadder(&res.Matrix, match.TotalGoals()),
		NextGoal:  nextGoal(res.LambdaHome, res.LambdaAway, match.Minute),
	}
	if quote != nil && !quote.Suspended {
		bundle.Handicap = g.adviseHandicap(&res.Matrix, match, quote)
	}
	bundle.Headline = headline(bundle, match)
	return bundle, nil
}

// overUnderLadder prices totals lines 0.5 through 5.5 on the projected
// full-time total. Exact-line ties are excluded as pushes.
func overUnderLadder(m *ScoreMatrix, currentTotal int) []OverUnderLine {
	lines := make([]OverUnderLine, 0, 6)
	for line := 0.5; line <= 5.5; line++ {
		over, under := 0.0, 0.0
		for i := range m {
			for j := range m[i] {
				total := float64(currentTotal + i + j)
				switch {
				case total > line:
					over += m[i][j]
				case total < line:
					under += m[i][j]
				}
			}
		}
		l := OverUnderLine{Line: line, Over: over, Under: under}
		switch {
		case over-under > overUnderEdge:
			l.Recommended = "over"
		case under-over > overUnderEdge:
			l.Recommended = "under"
		}
		lines = append(lines, l)
	}
	return lines
}

// nextGoal scales both rates by the remaining-time fraction and splits
// the non-zero-goal mass proportionally between the sides.
func nextGoal(lambdaHome, lambdaAway float64, minute int) NextGoalForecast {
	remaining := math.Max(0, regulationMinutes-float64(minute)) / regulationMinutes
	lh := lambdaHome * remaining
	la := lambdaAway * remaining

	none := PoissonPMF(0, lh) * PoissonPMF(0, la)
	f := NextGoalForecast{None: none}
	if lh+la > 0 {
		f.Home = (1 - none) * lh / (lh + la)
		f.Away = (1 - none) * la / (lh + la)
	} else {
		f.None = 1
	}
	switch {
	case f.Home > nextGoalThreshold:
		f.Recommended = "home"
	case f.Away > nextGoalThreshold:
		f.Recommended = "away"
	}
	return f
}

// adviseHandicap prices a quoted live line by full-match-score
// reconstruction: every matrix cell is projected onto the current score
// before the line is applied. Bookmakers re-quote lines relative to the
// current score, so comparing remaining goals to a re-based line would
// settle the wrong market.
func (g *GoalPredictor) adviseHandicap(m *ScoreMatrix, match *models.LiveMatch, quote *models.HandicapQuote) *HandicapAdvice {
	homeProb, awayProb, ok := ReconstructLine(m, match.HomeScore, match.AwayScore, quote.Line)
	if !ok {
		return nil
	}

	advice := &HandicapAdvice{
		Line:         quote.Line,
		HomeWinProb:  homeProb,
		AwayWinProb:  awayProb,
		HomeFairOdds: g.pricer.Odds(homeProb),
		AwayFairOdds: g.pricer.Odds(awayProb),
		HomeEdge:     valueEdge(quote.Home, homeProb),
		AwayEdge:     valueEdge(quote.Away, awayProb),
	}

	side, prob, edge := "home", homeProb, advice.HomeEdge
	if advice.AwayEdge > advice.HomeEdge {
		side, prob, edge = "away", awayProb, advice.AwayEdge
	}
	if prob >= handicapMinProb && edge >= handicapMinEdge {
		advice.Side = side
	}
	return advice
}

// ReconstructLine projects every matrix cell onto the current score,
// applies the line, and accumulates win/loss mass per side. Pushes are
// excluded: probabilities are normalized over decided outcomes only.
// ok is false when no cell decides the line.
func ReconstructLine(m *ScoreMatrix, homeScore, awayScore int, line float64) (homeProb, awayProb float64, ok bool) {
	homeWin, awayWin := 0.0, 0.0
	for i := range m {
		for j := range m[i] {
			finalHome := float64(homeScore+i) + line
			finalAway := float64(awayScore + j)
			switch {
			case finalHome-finalAway > 1e-9:
				homeWin += m[i][j]
			case finalAway-finalHome > 1e-9:
				awayWin += m[i][j]
			}
		}
	}
	decided := homeWin + awayWin
	if decided <= 0 {
		return 0, 0, false
	}
	return homeWin / decided, awayWin / decided, true
}

// valueEdge is market/fair − 1 against the unmargined fair price.
func valueEdge(market decimal.Decimal, probability float64) float64 {
	if probability <= 0 {
		return 0
	}
	return market.InexactFloat64()*probability - 1
}

// headline picks the single highest-probability qualifying suggestion
// across the over/under ladder and the next-goal forecast.
func headline(b *PredictionBundle, match *models.LiveMatch) *Advisory {
	var best *Advisory

	consider := func(a Advisory) {
		if best == nil || a.Probability > best.Probability {
			c := a
			best = &c
		}
	}

	currentTotal := float64(match.TotalGoals())
	for _, l := range b.OverUnder {
		if l.Recommended == "" || l.Line < currentTotal {
			continue
		}
		prob := l.Over
		if l.Recommended == "under" {
			prob = l.Under
		}
		if prob < 0.55 || prob > 0.85 {
			continue
		}
		consider(Advisory{Market: "over_under", Selection: l.Recommended, Line: l.Line, Probability: prob})
	}

	if b.NextGoal.Recommended != "" &&
		match.Minute > 0 && match.Minute < advisoryMaxMinute &&
		b.Result.Confidence >= advisoryMinConf {
		prob := b.NextGoal.Home
		if b.NextGoal.Recommended == "away" {
			prob = b.NextGoal.Away
		}
		if prob >= 0.45 && prob <= 0.75 {
			consider(Advisory{Market: "next_goal", Selection: b.NextGoal.Recommended, Probability: prob})
		}
	}
	return best
}
