package services

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oddscope/matchpulse/internal/engine"
	"github.com/oddscope/matchpulse/internal/models"
)

// StateManagerConfig bounds the per-match state kept in memory.
type StateManagerConfig struct {
	ModelConfig     engine.ModelConfig
	BookmakerMargin float64
	// ActivityWindow is the lookback for windowed stat deltas.
	ActivityWindow time.Duration
	// ActivityBuffer extends snapshot retention past the window so a
	// sample near the window edge is always available.
	ActivityBuffer time.Duration
	// IdleEviction is how long an untouched match survives a sweep.
	IdleEviction  time.Duration
	SweepInterval time.Duration
}

type statsSnapshot struct {
	at     time.Time
	minute int
	home   models.TeamStats
	away   models.TeamStats
}

// matchEntry is all mutable state for one match id. The entry mutex
// serializes every engine touch for the match: concurrent pushes would
// break the advance-only-on-new-minute invariant in momentum history
// and the snapshot buffer.
type matchEntry struct {
	mu         sync.Mutex
	predictor  *engine.GoalPredictor
	snapshots  []statsSnapshot
	lastAccess time.Time
	callCount  int64
}

// StateManager owns one {model, goal predictor} pair and one sliding
// stats window per live match id, constructing them lazily and evicting
// them when idle.
type StateManager struct {
	cfg    StateManagerConfig
	logger *logrus.Entry

	mu      sync.RWMutex
	entries map[string]*matchEntry

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewStateManager(cfg StateManagerConfig) *StateManager {
	if cfg.ActivityWindow <= 0 {
		cfg.ActivityWindow = 5 * time.Minute
	}
	if cfg.ActivityBuffer <= 0 {
		cfg.ActivityBuffer = time.Minute
	}
	if cfg.IdleEviction <= 0 {
		cfg.IdleEviction = 2 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 10 * time.Minute
	}
	return &StateManager{
		cfg:     cfg,
		logger:  logrus.WithField("component", "state_manager"),
		entries: make(map[string]*matchEntry),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the idle-eviction sweep.
func (s *StateManager) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop halts the sweep goroutine.
func (s *StateManager) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// Predict runs one serialized prediction for the match: it records a
// stats snapshot, derives the windowed activity deltas, and evaluates
// the match's goal predictor. All engine access for one match id flows
// through here and through the entry mutex.
func (s *StateManager) Predict(match *models.LiveMatch, quote *models.HandicapQuote) (*engine.PredictionBundle, error) {
	entry := s.getOrCreate(match.ID)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	entry.lastAccess = now
	entry.callCount++

	s.recordSnapshot(entry, match, now)
	recent := s.recentActivity(entry, match, now)

	return entry.predictor.Predict(match, recent, quote)
}

// ActiveMatches reports how many match entries are currently held.
func (s *StateManager) ActiveMatches() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// TotalCalls sums prediction calls across all live entries.
func (s *StateManager) TotalCalls() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, e := range s.entries {
		total += e.callCount
	}
	return total
}

// Forget drops the state for one match id.
func (s *StateManager) Forget(matchID string) {
	s.mu.Lock()
	delete(s.entries, matchID)
	s.mu.Unlock()
}

func (s *StateManager) getOrCreate(matchID string) *matchEntry {
	s.mu.RLock()
	entry, ok := s.entries[matchID]
	s.mu.RUnlock()
	if ok {
		return entry
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok = s.entries[matchID]; ok {
		return entry
	}

	model := engine.NewWinProbabilityModel(s.cfg.ModelConfig)
	entry = &matchEntry{
		// The predictor shares the model instance; a private copy would
		// desynchronize momentum history from the outcome probabilities.
		predictor:  engine.NewGoalPredictor(model, engine.NewHandicapPricer(s.cfg.BookmakerMargin)),
		lastAccess: time.Now(),
	}
	s.entries[matchID] = entry
	s.logger.WithField("match_id", matchID).Debug("Created match state")
	return entry
}

// recordSnapshot appends the current counters and prunes history beyond
// window+buffer. Caller holds the entry mutex.
func (s *StateManager) recordSnapshot(entry *matchEntry, match *models.LiveMatch, now time.Time) {
	entry.snapshots = append(entry.snapshots, statsSnapshot{
		at:     now,
		minute: match.Minute,
		home:   match.HomeStats,
		away:   match.AwayStats,
	})

	horizon := now.Add(-(s.cfg.ActivityWindow + s.cfg.ActivityBuffer))
	firstKept := 0
	for firstKept < len(entry.snapshots)-1 && entry.snapshots[firstKept].at.Before(horizon) {
		firstKept++
	}
	if firstKept > 0 {
		entry.snapshots = append([]statsSnapshot(nil), entry.snapshots[firstKept:]...)
	}
}

// recentActivity computes true windowed deltas against the snapshot
// nearest the window edge. Until the history is deep enough to cover
// the window it reports full-match totals, flagged unwindowed.
func (s *StateManager) recentActivity(entry *matchEntry, match *models.LiveMatch, now time.Time) *models.RecentActivity {
	target := now.Add(-s.cfg.ActivityWindow)

	var base *statsSnapshot
	for i := range entry.snapshots {
		snap := &entry.snapshots[i]
		if base == nil || absDuration(snap.at.Sub(target)) < absDuration(base.at.Sub(target)) {
			base = snap
		}
	}

	// A qualifying baseline must be old enough to cover most of the
	// window, else a burst right after first sight looks like a lull.
	if base == nil || now.Sub(base.at) < s.cfg.ActivityWindow-s.cfg.ActivityBuffer {
		return &models.RecentActivity{
			Home:     fullMatchDelta(match.HomeStats),
			Away:     fullMatchDelta(match.AwayStats),
			Windowed: false,
		}
	}

	return &models.RecentActivity{
		Home:     deltaSince(base.home, match.HomeStats),
		Away:     deltaSince(base.away, match.AwayStats),
		Windowed: true,
	}
}

// sweep evicts entries idle beyond the ceiling. Only entries untouched
// since before the sweep began are candidates, so an entry accessed
// mid-sweep is never torn down under a live prediction.
func (s *StateManager) sweep() {
	sweepStart := time.Now()
	cutoff := sweepStart.Add(-s.cfg.IdleEviction)

	s.mu.Lock()
	evicted := 0
	for id, entry := range s.entries {
		if entry.lastAccess.Before(cutoff) && entry.lastAccess.Before(sweepStart) {
			delete(s.entries, id)
			evicted++
		}
	}
	remaining := len(s.entries)
	s.mu.Unlock()

	if evicted > 0 {
		s.logger.WithFields(logrus.Fields{
			"evicted":   evicted,
			"remaining": remaining,
		}).Info("Evicted idle match state")
	}
}

func deltaSince(base, current models.TeamStats) models.ActivityDelta {
	return models.ActivityDelta{
		ShotsOnTarget:    clampNonNegative(current.ShotsOnTarget - base.ShotsOnTarget),
		ShotsOffTarget:   clampNonNegative(current.ShotsOffTarget - base.ShotsOffTarget),
		Corners:          clampNonNegative(current.Corners - base.Corners),
		DangerousAttacks: clampNonNegative(current.DangerousAttacks - base.DangerousAttacks),
	}
}

func fullMatchDelta(stats models.TeamStats) models.ActivityDelta {
	return models.ActivityDelta{
		ShotsOnTarget:    stats.ShotsOnTarget,
		ShotsOffTarget:   stats.ShotsOffTarget,
		Corners:          stats.Corners,
		DangerousAttacks: stats.DangerousAttacks,
	}
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
