package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuarterLineIsMeanOfNeighbors(t *testing.T) {
	m := NewScoreMatrix(1.2, 0.9)
	p := NewHandicapPricer(0.05)

	for _, line := range []float64{-1.75, -0.75, -0.25, 0.25, 0.75, 1.25} {
		quarter := p.Price(&m, 1, 0, line)
		lower := p.Price(&m, 1, 0, line-0.25)
		upper := p.Price(&m, 1, 0, line+0.25)

		assert.InDelta(t, (lower.HomeProb+upper.HomeProb)/2, quarter.HomeProb, 1e-12,
			"line %+.2f", line)
	}
}

func TestLineProbabilitiesComplement(t *testing.T) {
	m := NewScoreMatrix(1.45, 1.15)
	p := NewHandicapPricer(0)

	for _, line := range []float64{-2, -1.5, -0.5, 0, 0.5, 1.5, 2} {
		lp := p.Price(&m, 0, 0, line)
		assert.InDelta(t, 1.0, lp.HomeProb+lp.AwayProb, 1e-9, "line %+.2f", line)
	}
}

func TestOddsRoundTripWithinClamp(t *testing.T) {
	p := NewHandicapPricer(0)

	for _, prob := range []float64{0.06, 0.25, 0.5, 0.75, 0.9} {
		odds := p.oddsFloat(prob)
		assert.InDelta(t, prob, 1/odds, 1e-9, "prob %.2f", prob)
	}
}

func TestOddsClamped(t *testing.T) {
	p := NewHandicapPricer(0)

	assert.Equal(t, oddsCeil, p.oddsFloat(0.001), "long shots clamp to the ceiling")
	assert.Equal(t, oddsFloor, p.oddsFloat(0.999), "near-certainties clamp to the floor")
	assert.Equal(t, oddsCeil, p.oddsFloat(0), "zero probability prices at the ceiling")
}

func TestMarginShortensOdds(t *testing.T) {
	fair := NewHandicapPricer(0)
	margined := NewHandicapPricer(0.05)

	assert.Less(t, margined.oddsFloat(0.4), fair.oddsFloat(0.4))
}

func TestLadderCoversStandardLines(t *testing.T) {
	m := NewScoreMatrix(1.0, 1.0)
	lines := NewHandicapPricer(0.05).Ladder(&m, 0, 0)

	assert.Len(t, lines, 17)
	assert.Equal(t, -2.0, lines[0].Line)
	assert.Equal(t, 2.0, lines[len(lines)-1].Line)
}
