package engine

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	oddsFloor = 1.10
	oddsCeil  = 20.0

	ladderMin  = -2.0
	ladderMax  = 2.0
	ladderStep = 0.25
)

// LinePrice is the fair pricing of one Asian handicap line, quoted from
// the home perspective.
type LinePrice struct {
	Line     float64         `json:"line"`
	HomeProb float64         `json:"home_prob"`
	AwayProb float64         `json:"away_prob"`
	HomeOdds decimal.Decimal `json:"home_odds"`
	AwayOdds decimal.Decimal `json:"away_odds"`
}

// HandicapPricer prices handicap lines off a score matrix. The margin
// is the bookmaker overround removed from fair odds.
type HandicapPricer struct {
	margin float64
}

func NewHandicapPricer(margin float64) *HandicapPricer {
	if margin < 0 {
		margin = 0
	}
	return &HandicapPricer{margin: margin}
}

// Price returns the priced line for the given matrix and current score.
// Quarter lines (line mod 0.5 == 0.25) price as the average of the two
// adjacent half/whole lines, each counting a push as half a win.
func (p *HandicapPricer) Price(m *ScoreMatrix, homeScore, awayScore int, line float64) LinePrice {
	var homeProb float64
	if isQuarterLine(line) {
		lower := winProbability(m, homeScore, awayScore, line-0.25)
		upper := winProbability(m, homeScore, awayScore, line+0.25)
		homeProb = (lower + upper) / 2
	} else {
		homeProb = winProbability(m, homeScore, awayScore, line)
	}
	awayProb := 1 - homeProb
	return LinePrice{
		Line:     line,
		HomeProb: homeProb,
		AwayProb: awayProb,
		HomeOdds: p.Odds(homeProb),
		AwayOdds: p.Odds(awayProb),
	}
}

// Ladder prices every standard line from −2.0 to +2.0 in quarter steps.
func (p *HandicapPricer) Ladder(m *ScoreMatrix, homeScore, awayScore int) []LinePrice {
	var lines []LinePrice
	for line := ladderMin; line <= ladderMax+1e-9; line += ladderStep {
		lines = append(lines, p.Price(m, homeScore, awayScore, line))
	}
	return lines
}

// Odds converts a probability to margin-adjusted decimal odds, clamped
// to [1.10, 20.0].
func (p *HandicapPricer) Odds(probability float64) decimal.Decimal {
	return decimal.NewFromFloat(p.oddsFloat(probability)).Round(3)
}

func (p *HandicapPricer) oddsFloat(probability float64) float64 {
	if probability <= 0 {
		return oddsCeil
	}
	odds := (1 / probability) * (1 - p.margin)
	if odds < oddsFloor {
		return oddsFloor
	}
	if odds > oddsCeil {
		return oddsCeil
	}
	return odds
}

// winProbability sums matrix mass by the sign of the adjusted final
// margin (home+i+line) − (away+j), with pushes counted as half a win.
func winProbability(m *ScoreMatrix, homeScore, awayScore int, line float64) float64 {
	win, push := 0.0, 0.0
	for i := range m {
		for j := range m[i] {
			adjusted := float64(homeScore+i) + line - float64(awayScore+j)
			switch {
			case adjusted > 1e-9:
				win += m[i][j]
			case adjusted > -1e-9:
				push += m[i][j]
			}
		}
	}
	return win + push/2
}

func isQuarterLine(line float64) bool {
	frac := math.Abs(math.Mod(line, 0.5))
	return math.Abs(frac-0.25) < 1e-9
}
