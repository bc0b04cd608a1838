package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddscope/matchpulse/internal/models"
)

func liveMatch(minute, homeScore, awayScore int) *models.LiveMatch {
	return &models.LiveMatch{
		ID:        "m1",
		HomeTeam:  "Home FC",
		AwayTeam:  "Away FC",
		League:    "Test League",
		HomeScore: homeScore,
		AwayScore: awayScore,
		Minute:    minute,
		Status:    models.StatusLive,
		HomeStats: models.TeamStats{Possession: 50},
		AwayStats: models.TeamStats{Possession: 50},
	}
}

func TestPredictProbabilitiesSumToOne(t *testing.T) {
	tests := []struct {
		name                         string
		minute, homeScore, awayScore int
	}{
		{"kickoff", 0, 0, 0},
		{"midway leader", 45, 1, 0},
		{"late level draw boost", 85, 2, 2},
		{"stoppage time", 93, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewWinProbabilityModel(DefaultModelConfig())
			res, err := m.Predict(liveMatch(tt.minute, tt.homeScore, tt.awayScore), nil)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, res.HomeWin+res.Draw+res.AwayWin, 1e-9)
		})
	}
}

func TestPredictRatesAlwaysPositive(t *testing.T) {
	m := NewWinProbabilityModel(DefaultModelConfig())
	match := liveMatch(95, 1, 1)
	match.HomeStats.RedCards = 2
	match.AwayStats.RedCards = 1

	res, err := m.Predict(match, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.LambdaHome, rateFloor)
	assert.GreaterOrEqual(t, res.LambdaAway, rateFloor)
}

func TestPredictMomentumLiftsDominantSide(t *testing.T) {
	baseline, err := NewWinProbabilityModel(DefaultModelConfig()).
		Predict(liveMatch(70, 1, 0), nil)
	require.NoError(t, err)

	recent := &models.RecentActivity{
		Home:     models.ActivityDelta{ShotsOnTarget: 6, Corners: 4, DangerousAttacks: 20},
		Windowed: true,
	}
	dominant, err := NewWinProbabilityModel(DefaultModelConfig()).
		Predict(liveMatch(70, 1, 0), recent)
	require.NoError(t, err)

	assert.Greater(t, dominant.HomeWin, baseline.HomeWin,
		"heavy home pressure at 1-0 must raise the home win probability")
}

func TestPredictLeaderConvergesTowardCertainty(t *testing.T) {
	m := NewWinProbabilityModel(DefaultModelConfig())

	var prev float64
	for _, minute := range []int{70, 80, 88} {
		res, err := m.Predict(liveMatch(minute, 1, 0), nil)
		require.NoError(t, err)
		assert.Greater(t, res.HomeWin, prev,
			"leader's win probability must rise as the clock runs down (minute %d)", minute)
		prev = res.HomeWin
	}
}

func TestPredictLateDrawBoost(t *testing.T) {
	early, err := NewWinProbabilityModel(DefaultModelConfig()).Predict(liveMatch(60, 1, 1), nil)
	require.NoError(t, err)
	late, err := NewWinProbabilityModel(DefaultModelConfig()).Predict(liveMatch(88, 1, 1), nil)
	require.NoError(t, err)

	assert.Greater(t, late.Draw, early.Draw)
	assert.InDelta(t, 1.0, late.HomeWin+late.Draw+late.AwayWin, 1e-9)
}

func TestPredictConfidenceRange(t *testing.T) {
	for _, minute := range []int{0, 30, 60, 90, 100} {
		m := NewWinProbabilityModel(DefaultModelConfig())
		res, err := m.Predict(liveMatch(minute, 0, 0), nil)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Confidence, 0.6)
		assert.LessOrEqual(t, res.Confidence, 1.0)
	}
}

func TestPredictRejectsBadInput(t *testing.T) {
	m := NewWinProbabilityModel(DefaultModelConfig())

	_, err := m.Predict(nil, nil)
	assert.Error(t, err)

	_, err = m.Predict(liveMatch(-1, 0, 0), nil)
	assert.Error(t, err)
}

func TestFallbackPrediction(t *testing.T) {
	res := FallbackPrediction("m9", 42)

	assert.Equal(t, AlgorithmFallback, res.Algorithm)
	assert.InDelta(t, 1.0, res.HomeWin+res.Draw+res.AwayWin, 1e-9)
	assert.Equal(t, fallbackConfidence, res.Confidence)
	assert.Equal(t, "m9", res.MatchID)
}
