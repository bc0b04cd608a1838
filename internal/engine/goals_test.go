package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddscope/matchpulse/internal/models"
)

func newPredictor() *GoalPredictor {
	model := NewWinProbabilityModel(DefaultModelConfig())
	return NewGoalPredictor(model, NewHandicapPricer(0.05))
}

func TestGoalPredictorSharesHostModel(t *testing.T) {
	model := NewWinProbabilityModel(DefaultModelConfig())
	g := NewGoalPredictor(model, NewHandicapPricer(0))

	assert.Same(t, model, g.Model())
}

func TestOverUnderLinesComplement(t *testing.T) {
	m := NewScoreMatrix(1.3, 1.1)
	for _, l := range overUnderLadder(&m, 1) {
		// Half-goal lines cannot push, so over and under partition the mass.
		assert.InDelta(t, 1.0, l.Over+l.Under, 1e-9, "line %.1f", l.Line)
	}
}

func TestOverUnderDecidedLine(t *testing.T) {
	m := NewScoreMatrix(0.5, 0.5)
	lines := overUnderLadder(&m, 3)

	assert.Equal(t, 0.5, lines[0].Line)
	assert.InDelta(t, 1.0, lines[0].Over, 1e-9, "three goals already scored decide the 0.5 line")
	assert.Equal(t, "over", lines[0].Recommended)
}

func TestOverUnderRecommendationThreshold(t *testing.T) {
	balanced := OverUnderLine{Over: 0.56, Under: 0.44}
	assert.LessOrEqual(t, balanced.Over-balanced.Under, overUnderEdge+1e-9)

	m := NewScoreMatrix(0.05, 0.05)
	lines := overUnderLadder(&m, 0)
	assert.Equal(t, "under", lines[0].Recommended, "tiny rates make under 0.5 dominant")
}

func TestNextGoalDistribution(t *testing.T) {
	f := nextGoal(1.4, 0.7, 30)

	assert.InDelta(t, 1.0, f.Home+f.Away+f.None, 1e-9)
	assert.Greater(t, f.Home, f.Away, "the higher rate takes the larger share")
}

func TestNextGoalAtFullTime(t *testing.T) {
	f := nextGoal(1.4, 0.7, 90)

	assert.InDelta(t, 1.0, f.None, 1e-9)
	assert.Empty(t, f.Recommended)
}

func TestNextGoalRecommendationThreshold(t *testing.T) {
	f := nextGoal(3.0, 0.2, 10)
	assert.Equal(t, "home", f.Recommended)

	f = nextGoal(0.8, 0.8, 10)
	assert.Empty(t, f.Recommended, "even split stays below the recommendation threshold")
}

func TestReconstructLineCrossCheck(t *testing.T) {
	// Score 1-0, line −1.5: the adjusted margin is i−j−0.5, so the home
	// side wins exactly the cells where it outscores the away side from
	// here on.
	m := NewScoreMatrix(1.0, 1.0)

	want := 0.0
	for i := range m {
		for j := range m[i] {
			if i > j {
				want += m[i][j]
			}
		}
	}

	homeProb, awayProb, ok := ReconstructLine(&m, 1, 0, -1.5)
	require.True(t, ok)
	assert.InDelta(t, want, homeProb, 1e-12)
	assert.InDelta(t, 1-want, awayProb, 1e-12)
}

func TestPredictBundleWithHandicapQuote(t *testing.T) {
	match := liveMatch(60, 1, 0)
	quote := &models.HandicapQuote{
		MatchID: match.ID,
		Line:    -0.5,
		Home:    decimal.NewFromFloat(2.10),
		Away:    decimal.NewFromFloat(1.75),
	}

	bundle, err := newPredictor().Predict(match, nil, quote)
	require.NoError(t, err)
	require.NotNil(t, bundle.Handicap)

	assert.InDelta(t, 1.0, bundle.Handicap.HomeWinProb+bundle.Handicap.AwayWinProb, 1e-9)
	assert.Len(t, bundle.OverUnder, 6)
	assert.InDelta(t, 1.0, bundle.NextGoal.Home+bundle.NextGoal.Away+bundle.NextGoal.None, 1e-9)
}

func TestPredictBundleSuspendedQuote(t *testing.T) {
	quote := &models.HandicapQuote{Line: -0.5, Suspended: true}

	bundle, err := newPredictor().Predict(liveMatch(60, 1, 0), nil, quote)
	require.NoError(t, err)
	assert.Nil(t, bundle.Handicap, "suspended lines produce no advice")
}

func TestHeadlineExcludesDecidedLines(t *testing.T) {
	match := liveMatch(50, 2, 1)

	bundle, err := newPredictor().Predict(match, nil, nil)
	require.NoError(t, err)

	if bundle.Headline != nil && bundle.Headline.Market == "over_under" {
		assert.GreaterOrEqual(t, bundle.Headline.Line, float64(match.TotalGoals()),
			"already-decided totals lines must not headline")
	}
}

func TestHeadlineProbabilityBand(t *testing.T) {
	bundle, err := newPredictor().Predict(liveMatch(30, 0, 0), nil, nil)
	require.NoError(t, err)

	if bundle.Headline != nil {
		assert.GreaterOrEqual(t, bundle.Headline.Probability, 0.45)
		assert.LessOrEqual(t, bundle.Headline.Probability, 0.85)
	}
}
