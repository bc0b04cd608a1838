package engine

import (
	"github.com/oddscope/matchpulse/internal/models"
)

// Event weights for the raw pressure sum.
const (
	weightDangerousAttack = 0.1
	weightShotOnTarget    = 1.0
	weightShotOffTarget   = 0.4
	weightCorner          = 0.3
	weightPossession      = 0.05
	redCardBoost          = 2.0

	historyCap      = 10
	smoothingWeight = 0.3

	multiplierFloor = 0.6
	multiplierSpan  = 0.8
	multiplierCeil  = 1.4
)

// SideSample is one side's input to a pressure computation. Counts are
// the recent-window deltas when Windowed is true, otherwise full-match
// totals which contribute at half weight.
type SideSample struct {
	Possession float64
	RedCards   int
	Counts     models.ActivityDelta
	Windowed   bool
}

// PressureSummary is the full momentum read-out for one update.
type PressureSummary struct {
	HomeRaw        float64 `json:"home_raw"`
	AwayRaw        float64 `json:"away_raw"`
	Home           float64 `json:"home"`
	Away           float64 `json:"away"`
	HomeSmoothed   float64 `json:"home_smoothed"`
	AwaySmoothed   float64 `json:"away_smoothed"`
	HomeMultiplier float64 `json:"home_multiplier"`
	AwayMultiplier float64 `json:"away_multiplier"`
	Dominant       string  `json:"dominant"`
}

// MomentumEngine converts raw event counts into a smoothed 0-100
// pressure per side and a bounded goal-rate multiplier. It keeps a
// rolling history of normalized pressure, advanced at most once per
// match minute.
type MomentumEngine struct {
	homeHistory []float64
	awayHistory []float64
	lastMinute  int
}

func NewMomentumEngine() *MomentumEngine {
	return &MomentumEngine{lastMinute: -1}
}

// Update computes the pressure summary for the given minute and pushes
// the normalized values into history if the minute advanced since the
// last push. Calling it twice for the same minute leaves history
// unchanged the second time.
func (e *MomentumEngine) Update(minute int, home, away SideSample) PressureSummary {
	rawHome := rawPressure(home, away.RedCards)
	rawAway := rawPressure(away, home.RedCards)

	normHome, normAway := normalizePair(rawHome, rawAway)

	smoothHome := smooth(normHome, e.homeHistory)
	smoothAway := smooth(normAway, e.awayHistory)

	if minute > e.lastMinute {
		e.homeHistory = pushCapped(e.homeHistory, normHome)
		e.awayHistory = pushCapped(e.awayHistory, normAway)
		e.lastMinute = minute
	}

	s := PressureSummary{
		HomeRaw:        rawHome,
		AwayRaw:        rawAway,
		Home:           normHome,
		Away:           normAway,
		HomeSmoothed:   smoothHome,
		AwaySmoothed:   smoothAway,
		HomeMultiplier: toMultiplier(smoothHome),
		AwayMultiplier: toMultiplier(smoothAway),
	}
	switch {
	case smoothHome > smoothAway:
		s.Dominant = "home"
	case smoothAway > smoothHome:
		s.Dominant = "away"
	default:
		s.Dominant = "balanced"
	}
	return s
}

// HistoryLen reports how many entries the rolling history holds.
func (e *MomentumEngine) HistoryLen() int {
	return len(e.homeHistory)
}

func rawPressure(s SideSample, opponentRedCards int) float64 {
	raw := weightShotOnTarget*float64(s.Counts.ShotsOnTarget) +
		weightShotOffTarget*float64(s.Counts.ShotsOffTarget) +
		weightCorner*float64(s.Counts.Corners) +
		weightDangerousAttack*float64(s.Counts.DangerousAttacks)
	if !s.Windowed {
		// Full-match totals overstate recent activity.
		raw *= 0.5
	}
	if s.Possession > 50 {
		raw += weightPossession * (s.Possession - 50)
	}
	raw += redCardBoost * float64(opponentRedCards)
	if raw < 0 {
		raw = 0
	}
	return raw
}

func normalizePair(home, away float64) (float64, float64) {
	total := home + away
	if total == 0 {
		return 50, 50
	}
	return home / total * 100, away / total * 100
}

func smooth(current float64, history []float64) float64 {
	if len(history) == 0 {
		return current
	}
	sum := 0.0
	for _, v := range history {
		sum += v
	}
	avg := sum / float64(len(history))
	return smoothingWeight*current + (1-smoothingWeight)*avg
}

func pushCapped(history []float64, v float64) []float64 {
	history = append(history, v)
	if len(history) > historyCap {
		history = history[1:]
	}
	return history
}

func toMultiplier(pressure float64) float64 {
	m := multiplierFloor + pressure/100*multiplierSpan
	if m < multiplierFloor {
		return multiplierFloor
	}
	if m > multiplierCeil {
		return multiplierCeil
	}
	return m
}
