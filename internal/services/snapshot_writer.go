package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oddscope/matchpulse/internal/engine"
	"github.com/oddscope/matchpulse/internal/models"
)

const (
	scoreWriteCooldown = 30 * time.Second
	maxWriteInterval   = 5 * time.Minute
	throttleIdleTTL    = 4 * time.Hour
)

// SnapshotStore is the persistence surface the writer needs.
type SnapshotStore interface {
	UpsertSnapshot(ctx context.Context, rec *models.SnapshotRecord) error
	InsertResult(ctx context.Context, res *models.MatchResult) error
}

type throttleState struct {
	lastWrite time.Time
	lastSeen  time.Time
	homeScore int
	awayScore int
	finished  bool
}

// SnapshotWriter persists prediction snapshots behind a per-match
// throttle. Any single rule firing is enough to write: first sight,
// a finished transition, a score change after the cooldown, or the
// unconditional five-minute interval. Persistence is best-effort; a
// failed write logs and never propagates.
type SnapshotWriter struct {
	store  SnapshotStore
	logger *logrus.Entry

	mu      sync.Mutex
	matches map[string]*throttleState
}

// NewSnapshotWriter builds a writer. A nil store turns every call into
// a no-op so the serving path works without a database.
func NewSnapshotWriter(store SnapshotStore) *SnapshotWriter {
	return &SnapshotWriter{
		store:   store,
		logger:  logrus.WithField("component", "snapshot_writer"),
		matches: make(map[string]*throttleState),
	}
}

// Persist writes the snapshot if the throttle allows and, on a finished
// transition, also records the final result.
func (w *SnapshotWriter) Persist(ctx context.Context, match *models.LiveMatch, result *engine.PredictionResult) {
	if w.store == nil {
		return
	}

	now := time.Now()

	w.mu.Lock()
	state, tracked := w.matches[match.ID]
	shouldWrite, isFinal := w.decide(state, match, now)
	if shouldWrite {
		if !tracked {
			state = &throttleState{}
			w.matches[match.ID] = state
		}
		state.lastWrite = now
		state.homeScore = match.HomeScore
		state.awayScore = match.AwayScore
		state.finished = state.finished || isFinal
	}
	if state != nil {
		state.lastSeen = now
	}
	w.evictStaleLocked(now)
	w.mu.Unlock()

	if !shouldWrite {
		return
	}

	rec := snapshotRecord(match, result)
	if err := w.store.UpsertSnapshot(ctx, rec); err != nil {
		w.logger.WithError(err).WithField("match_id", match.ID).Error("Failed to persist snapshot")
	}

	if isFinal {
		res := &models.MatchResult{
			MatchID:    match.ID,
			HomeTeam:   match.HomeTeam,
			AwayTeam:   match.AwayTeam,
			League:     match.League,
			HomeScore:  match.HomeScore,
			AwayScore:  match.AwayScore,
			Outcome:    models.OutcomeForScore(match.HomeScore, match.AwayScore),
			FinishedAt: now.UTC(),
		}
		if err := w.store.InsertResult(ctx, res); err != nil {
			w.logger.WithError(err).WithField("match_id", match.ID).Error("Failed to persist result")
		} else {
			w.logger.WithFields(logrus.Fields{
				"match_id": match.ID,
				"outcome":  res.Outcome,
			}).Info("Recorded final result")
		}
	}
}

// TrackedMatches reports the current throttle-table size.
func (w *SnapshotWriter) TrackedMatches() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.matches)
}

// decide applies the throttle rules. Caller holds the mutex.
func (w *SnapshotWriter) decide(state *throttleState, match *models.LiveMatch, now time.Time) (write, isFinal bool) {
	finished := match.Status == models.StatusFinished

	if state == nil {
		return true, finished
	}
	if finished && !state.finished {
		return true, true
	}
	if state.finished {
		return false, false
	}

	scoreChanged := state.homeScore != match.HomeScore || state.awayScore != match.AwayScore
	if scoreChanged && now.Sub(state.lastWrite) >= scoreWriteCooldown {
		return true, false
	}
	if now.Sub(state.lastWrite) >= maxWriteInterval {
		return true, false
	}
	return false, false
}

// evictStaleLocked drops throttle entries idle past the TTL and
// entries whose finished write already happened. Caller holds the
// mutex.
func (w *SnapshotWriter) evictStaleLocked(now time.Time) {
	for id, state := range w.matches {
		if state.finished && now.Sub(state.lastWrite) > time.Minute {
			delete(w.matches, id)
			continue
		}
		if now.Sub(state.lastSeen) > throttleIdleTTL {
			delete(w.matches, id)
		}
	}
}

func snapshotRecord(match *models.LiveMatch, result *engine.PredictionResult) *models.SnapshotRecord {
	return &models.SnapshotRecord{
		MatchID:     match.ID,
		HomeTeam:    match.HomeTeam,
		AwayTeam:    match.AwayTeam,
		League:      match.League,
		HomeScore:   match.HomeScore,
		AwayScore:   match.AwayScore,
		Minute:      match.Minute,
		Status:      match.Status,
		HomeWinProb: result.HomeWin,
		DrawProb:    result.Draw,
		AwayWinProb: result.AwayWin,
		Confidence:  result.Confidence,
		Algorithm:   result.Algorithm,
		Features: map[string]any{
			"lambda_home":     result.LambdaHome,
			"lambda_away":     result.LambdaAway,
			"home_pressure":   result.Pressure.Home,
			"away_pressure":   result.Pressure.Away,
			"home_multiplier": result.Pressure.HomeMultiplier,
			"away_multiplier": result.Pressure.AwayMultiplier,
		},
		CreatedAt: time.Now().UTC(),
	}
}
