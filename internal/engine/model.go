package engine

import (
	"errors"
	"math"
	"time"

	"github.com/oddscope/matchpulse/internal/models"
)

// Algorithm tags stamped onto prediction results.
const (
	AlgorithmLive     = "live-poisson-v2"
	AlgorithmFallback = "fallback-v1"
)

const (
	regulationMinutes  = 90.0
	quadraticCutoff    = 0.10
	redCardFactor      = 0.65
	leaderBias         = 0.85
	trailerBias        = 1.15
	rateFloor          = 0.001
	drawBoostOnset     = 0.70
	fallbackConfidence = 0.30
)

// ModelConfig carries the tunable baseline expected-goal rates.
type ModelConfig struct {
	HomeBaseXG float64
	AwayBaseXG float64
}

// DefaultModelConfig returns the standard home/away baselines.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{HomeBaseXG: 1.45, AwayBaseXG: 1.15}
}

// PredictionResult is one full model evaluation: goal rates, the score
// matrix they imply, outcome probabilities and the momentum read-out.
type PredictionResult struct {
	MatchID     string          `json:"match_id"`
	HomeWin     float64         `json:"home_win"`
	Draw        float64         `json:"draw"`
	AwayWin     float64         `json:"away_win"`
	LambdaHome  float64         `json:"lambda_home"`
	LambdaAway  float64         `json:"lambda_away"`
	Confidence  float64         `json:"confidence"`
	Algorithm   string          `json:"algorithm"`
	Minute      int             `json:"minute"`
	Pressure    PressureSummary `json:"pressure"`
	Matrix      ScoreMatrix     `json:"-"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// WinProbabilityModel derives time-decayed, momentum- and card-adjusted
// goal rates for one match and turns them into 1X2 probabilities. Each
// model owns exactly one momentum engine; the goal predictor for the
// same match must be constructed around the same model instance.
type WinProbabilityModel struct {
	cfg      ModelConfig
	momentum *MomentumEngine
}

func NewWinProbabilityModel(cfg ModelConfig) *WinProbabilityModel {
	if cfg.HomeBaseXG <= 0 {
		cfg.HomeBaseXG = DefaultModelConfig().HomeBaseXG
	}
	if cfg.AwayBaseXG <= 0 {
		cfg.AwayBaseXG = DefaultModelConfig().AwayBaseXG
	}
	return &WinProbabilityModel{cfg: cfg, momentum: NewMomentumEngine()}
}

// Momentum exposes the model's momentum engine.
func (m *WinProbabilityModel) Momentum() *MomentumEngine {
	return m.momentum
}

var errNilMatch = errors.New("nil match")

// Predict evaluates the model against the current telemetry. recent may
// be nil when no windowed activity deltas are available yet.
func (m *WinProbabilityModel) Predict(match *models.LiveMatch, recent *models.RecentActivity) (*PredictionResult, error) {
	if match == nil {
		return nil, errNilMatch
	}
	if match.Minute < 0 {
		return nil, errors.New("negative match minute")
	}

	pressure := m.momentum.Update(match.Minute,
		sideSample(match.HomeStats, recent, true),
		sideSample(match.AwayStats, recent, false),
	)

	decay := timeDecay(match.Minute)

	lambdaHome := m.cfg.HomeBaseXG * decay * pressure.HomeMultiplier *
		math.Pow(redCardFactor, float64(match.HomeStats.RedCards))
	lambdaAway := m.cfg.AwayBaseXG * decay * pressure.AwayMultiplier *
		math.Pow(redCardFactor, float64(match.AwayStats.RedCards))

	switch {
	case match.HomeScore > match.AwayScore:
		lambdaHome *= leaderBias
		lambdaAway *= trailerBias
	case match.AwayScore > match.HomeScore:
		lambdaHome *= trailerBias
		lambdaAway *= leaderBias
	}

	lambdaHome = math.Max(lambdaHome, rateFloor)
	lambdaAway = math.Max(lambdaAway, rateFloor)

	matrix := NewScoreMatrix(lambdaHome, lambdaAway)
	win, draw, loss := matrix.Outcomes(match.HomeScore, match.AwayScore)

	if match.HomeScore == match.AwayScore {
		win, draw, loss = applyDrawBoost(win, draw, loss, match.Minute)
	}

	return &PredictionResult{
		MatchID:     match.ID,
		HomeWin:     win,
		Draw:        draw,
		AwayWin:     loss,
		LambdaHome:  lambdaHome,
		LambdaAway:  lambdaAway,
		Confidence:  confidence(match.Minute, pressure),
		Algorithm:   AlgorithmLive,
		Minute:      match.Minute,
		Pressure:    pressure,
		Matrix:      matrix,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// FallbackPrediction is the neutral result served when a model
// evaluation fails. The match is kept alive rather than dropped.
func FallbackPrediction(matchID string, minute int) *PredictionResult {
	return &PredictionResult{
		MatchID:     matchID,
		HomeWin:     0.33,
		Draw:        0.34,
		AwayWin:     0.33,
		Confidence:  fallbackConfidence,
		Algorithm:   AlgorithmFallback,
		Minute:      minute,
		GeneratedAt: time.Now().UTC(),
	}
}

func sideSample(stats models.TeamStats, recent *models.RecentActivity, home bool) SideSample {
	s := SideSample{
		Possession: stats.Possession,
		RedCards:   stats.RedCards,
		Counts: models.ActivityDelta{
			ShotsOnTarget:    stats.ShotsOnTarget,
			ShotsOffTarget:   stats.ShotsOffTarget,
			Corners:          stats.Corners,
			DangerousAttacks: stats.DangerousAttacks,
		},
	}
	if recent != nil && recent.Windowed {
		if home {
			s.Counts = recent.Home
		} else {
			s.Counts = recent.Away
		}
		s.Windowed = true
	}
	return s
}

// timeDecay shrinks goal rates with the remaining fraction of the
// match; inside the final 10% it switches to a quadratic so stoppage
// time collapses toward zero instead of holding a linear floor.
func timeDecay(minute int) float64 {
	remaining := regulationMinutes - float64(minute)
	if remaining < 0 {
		remaining = 0
	}
	ratio := remaining / regulationMinutes
	if ratio < quadraticCutoff {
		return ratio * ratio * 10
	}
	return ratio
}

// applyDrawBoost inflates draw mass late in a level game, ramping to
// ×1.5 at the 90th minute, then renormalizes the triple.
func applyDrawBoost(win, draw, loss float64, minute int) (float64, float64, float64) {
	frac := float64(minute) / regulationMinutes
	if frac > 1 {
		frac = 1
	}
	if frac <= drawBoostOnset {
		return win, draw, loss
	}
	draw *= 1 + (frac-drawBoostOnset)*(0.5/0.3)
	total := win + draw + loss
	if total > 0 {
		win /= total
		draw /= total
		loss /= total
	}
	return win, draw, loss
}

func confidence(minute int, pressure PressureSummary) float64 {
	progress := math.Min(1, float64(minute)/regulationMinutes)
	imbalance := math.Abs(pressure.HomeMultiplier - pressure.AwayMultiplier)
	return 0.6 + 0.3*progress + 0.1*(1-0.2*imbalance)
}
