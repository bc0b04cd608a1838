package engine

import (
	"math"
)

// MaxExtraGoals caps the score matrix at this many further goals per
// side. Mass beyond the cap is folded back in by normalization.
const MaxExtraGoals = 8

// PoissonPMF returns P(X = k) for X ~ Poisson(lambda).
func PoissonPMF(k int, lambda float64) float64 {
	if k < 0 || lambda < 0 {
		return 0
	}
	if lambda == 0 {
		if k == 0 {
			return 1
		}
		return 0
	}
	// exp(-λ + k·ln λ − ln k!) avoids overflow for large k.
	logP := -lambda + float64(k)*math.Log(lambda) - logFactorial(k)
	return math.Exp(logP)
}

func logFactorial(k int) float64 {
	lg, _ := math.Lgamma(float64(k) + 1)
	return lg
}

// ScoreMatrix is the normalized joint distribution of further goals
// for each side: cell [i][j] = P(home scores i more, away scores j more).
type ScoreMatrix [MaxExtraGoals + 1][MaxExtraGoals + 1]float64

// NewScoreMatrix builds the joint matrix from two independent Poisson
// rates and normalizes it to sum exactly to one.
func NewScoreMatrix(lambdaHome, lambdaAway float64) ScoreMatrix {
	var m ScoreMatrix
	total := 0.0
	for i := 0; i <= MaxExtraGoals; i++ {
		ph := PoissonPMF(i, lambdaHome)
		for j := 0; j <= MaxExtraGoals; j++ {
			p := ph * PoissonPMF(j, lambdaAway)
			m[i][j] = p
			total += p
		}
	}
	if total > 0 {
		for i := range m {
			for j := range m[i] {
				m[i][j] /= total
			}
		}
	}
	return m
}

// Sum returns the total mass of the matrix.
func (m *ScoreMatrix) Sum() float64 {
	total := 0.0
	for i := range m {
		for j := range m[i] {
			total += m[i][j]
		}
	}
	return total
}

// Outcomes splits the matrix by the sign of the projected final margin
// (homeScore+i) − (awayScore+j) into win/draw/loss mass.
func (m *ScoreMatrix) Outcomes(homeScore, awayScore int) (win, draw, loss float64) {
	for i := range m {
		for j := range m[i] {
			margin := (homeScore + i) - (awayScore + j)
			switch {
			case margin > 0:
				win += m[i][j]
			case margin < 0:
				loss += m[i][j]
			default:
				draw += m[i][j]
			}
		}
	}
	return win, draw, loss
}
