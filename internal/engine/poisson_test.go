package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoissonPMF(t *testing.T) {
	tests := []struct {
		name   string
		k      int
		lambda float64
		want   float64
	}{
		{"zero events unit rate", 0, 1.0, math.Exp(-1)},
		{"two events rate two", 2, 2.0, 2 * math.Exp(-2)},
		{"zero rate zero events", 0, 0, 1},
		{"zero rate one event", 1, 0, 0},
		{"negative count", -1, 1.0, 0},
		{"negative rate", 2, -0.5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PoissonPMF(tt.k, tt.lambda), 1e-12)
		})
	}
}

func TestScoreMatrixNormalized(t *testing.T) {
	for _, rates := range [][2]float64{{1.45, 1.15}, {0.001, 0.001}, {5.0, 4.0}, {0.3, 2.8}} {
		m := NewScoreMatrix(rates[0], rates[1])
		assert.InDelta(t, 1.0, m.Sum(), 1e-9, "rates %v", rates)
	}
}

func TestScoreMatrixOutcomesSumToOne(t *testing.T) {
	m := NewScoreMatrix(1.2, 0.9)
	for _, score := range [][2]int{{0, 0}, {1, 0}, {0, 2}, {3, 3}} {
		win, draw, loss := m.Outcomes(score[0], score[1])
		assert.InDelta(t, 1.0, win+draw+loss, 1e-9, "score %v", score)
	}
}

func TestScoreMatrixOutcomesRespectLead(t *testing.T) {
	m := NewScoreMatrix(0.2, 0.2)
	win, _, loss := m.Outcomes(2, 0)
	assert.Greater(t, win, 0.9, "two-goal lead with tiny rates should be near-certain")
	assert.Less(t, loss, 0.01)
}
