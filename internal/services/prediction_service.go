package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oddscope/matchpulse/internal/cache"
	"github.com/oddscope/matchpulse/internal/engine"
	"github.com/oddscope/matchpulse/internal/models"
)

// PredictionUpdate is a full per-match evaluation: the model output and
// goal-market advisory plus any 1X2 value signals against cached odds.
type PredictionUpdate struct {
	Match       *models.LiveMatch        `json:"match"`
	Prediction  *engine.PredictionBundle `json:"prediction"`
	Signals     []engine.ValueSignal     `json:"signals,omitempty"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// PredictionServiceConfig tunes the periodic re-prediction loop.
type PredictionServiceConfig struct {
	Interval        time.Duration
	ModelConfig     engine.ModelConfig
	BookmakerMargin float64
}

// PredictionService drives the periodic re-prediction of every live
// match and serves on-demand evaluations. All live-state access runs
// through the state manager so each match id stays serialized.
type PredictionService struct {
	cfg       PredictionServiceConfig
	state     *StateManager
	ingestion *IngestionService
	oddsCache *cache.OddsCache
	broadcast *Broadcaster
	writer    *SnapshotWriter
	notifier  *NotificationService
	logger    *logrus.Entry

	mu     sync.RWMutex
	latest map[string]*PredictionUpdate

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewPredictionService(
	cfg PredictionServiceConfig,
	state *StateManager,
	ingestion *IngestionService,
	oddsCache *cache.OddsCache,
	broadcast *Broadcaster,
	writer *SnapshotWriter,
	notifier *NotificationService,
) *PredictionService {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &PredictionService{
		cfg:       cfg,
		state:     state,
		ingestion: ingestion,
		oddsCache: oddsCache,
		broadcast: broadcast,
		writer:    writer,
		notifier:  notifier,
		logger:    logrus.WithField("component", "prediction_service"),
		latest:    make(map[string]*PredictionUpdate),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the re-prediction loop.
func (s *PredictionService) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.refreshAll(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the loop.
func (s *PredictionService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// Latest returns the most recent periodic evaluation for a match.
func (s *PredictionService) Latest(matchID string) (*PredictionUpdate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	update, ok := s.latest[matchID]
	return update, ok
}

// PredictMatch runs an on-demand evaluation for one tracked match.
func (s *PredictionService) PredictMatch(ctx context.Context, matchID string) (*PredictionUpdate, error) {
	match, ok := s.ingestion.Match(matchID)
	if !ok {
		return nil, fmt.Errorf("match %s is not live", matchID)
	}
	return s.evaluate(ctx, match, false)
}

// PredictBatch evaluates caller-supplied telemetry with fresh engines.
// Batch calls never touch live per-match state: the same payload always
// yields the same answer regardless of what the live loop is doing.
func (s *PredictionService) PredictBatch(matches []models.LiveMatch) []*PredictionUpdate {
	out := make([]*PredictionUpdate, 0, len(matches))
	pricer := engine.NewHandicapPricer(s.cfg.BookmakerMargin)

	for i := range matches {
		match := &matches[i]
		predictor := engine.NewGoalPredictor(engine.NewWinProbabilityModel(s.cfg.ModelConfig), pricer)

		bundle, err := predictor.Predict(match, nil, nil)
		if err != nil {
			s.logger.WithError(err).WithField("match_id", match.ID).Warn("Batch evaluation failed, serving fallback")
			bundle = &engine.PredictionBundle{Result: engine.FallbackPrediction(match.ID, match.Minute)}
		}
		out = append(out, &PredictionUpdate{
			Match:       match,
			Prediction:  bundle,
			GeneratedAt: time.Now().UTC(),
		})
	}
	return out
}

// refreshAll re-predicts every live match once, then drops cached
// evaluations and engine state for matches that left the feed.
func (s *PredictionService) refreshAll(ctx context.Context) {
	matches := s.ingestion.LiveMatches()

	seen := make(map[string]bool, len(matches))
	for _, match := range matches {
		seen[match.ID] = true
		if match.Status == models.StatusNotStarted {
			continue
		}
		if _, err := s.evaluate(ctx, match, true); err != nil {
			s.logger.WithError(err).WithField("match_id", match.ID).Error("Periodic evaluation failed")
		}
		if match.Status == models.StatusFinished {
			s.state.Forget(match.ID)
		}
	}

	s.mu.Lock()
	for id := range s.latest {
		if !seen[id] {
			delete(s.latest, id)
		}
	}
	s.mu.Unlock()
}

// evaluate runs one full evaluation and, for periodic refreshes, feeds
// the downstream consumers (broadcast, persistence, notifications).
func (s *PredictionService) evaluate(ctx context.Context, match *models.LiveMatch, periodic bool) (*PredictionUpdate, error) {
	var quote *models.HandicapQuote
	if s.oddsCache != nil {
		if q, ok := s.oddsCache.Quote(ctx, match.ID); ok {
			quote = q
		}
	}

	bundle, err := s.state.Predict(match, quote)
	if err != nil {
		bundle = &engine.PredictionBundle{Result: engine.FallbackPrediction(match.ID, match.Minute)}
	}

	update := &PredictionUpdate{
		Match:       match,
		Prediction:  bundle,
		GeneratedAt: time.Now().UTC(),
	}

	if s.oddsCache != nil {
		if odds, ok := s.oddsCache.MatchOdds(ctx, match.ID); ok {
			update.Signals = engine.EvaluateOneXTwo(bundle.Result, odds)
		}
	}

	s.mu.Lock()
	s.latest[match.ID] = update
	s.mu.Unlock()

	if periodic {
		if s.broadcast != nil {
			s.broadcast.PublishPrediction(ctx, update)
		}
		if s.writer != nil {
			s.writer.Persist(ctx, match, bundle.Result)
		}
		if s.notifier != nil {
			s.notifier.AnnounceSignals(ctx, match, bundle.Result, update.Signals)
		}
	}
	return update, nil
}
