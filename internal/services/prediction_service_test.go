package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddscope/matchpulse/internal/engine"
	"github.com/oddscope/matchpulse/internal/models"
	"github.com/oddscope/matchpulse/internal/upstream"
)

func newTestPredictionService(source *stubSource) (*PredictionService, *IngestionService, *Broadcaster, *recordingStore) {
	ingestion, broadcaster := newTestIngestion(source, IngestionConfig{})
	store := &recordingStore{}

	svc := NewPredictionService(
		PredictionServiceConfig{
			Interval:        30 * time.Second,
			ModelConfig:     engine.DefaultModelConfig(),
			BookmakerMargin: 0.05,
		},
		newTestStateManager(),
		ingestion,
		ingestion.oddsCache,
		broadcaster,
		NewSnapshotWriter(store),
		NewNotificationService(NotificationConfig{}),
	)
	return svc, ingestion, broadcaster, store
}

func TestPredictionRefreshAll(t *testing.T) {
	source := &stubSource{fixtures: []upstream.Fixture{stubFixture(1001, "2H", 60, 1, 0)}}
	svc, ingestion, broadcaster, store := newTestPredictionService(source)
	ctx := context.Background()

	ingestion.poll(ctx)

	id, ch := broadcaster.Subscribe()
	defer broadcaster.Unsubscribe(id)

	svc.refreshAll(ctx)

	update, ok := svc.Latest("1001")
	require.True(t, ok)
	require.NotNil(t, update.Prediction.Result)
	assert.Equal(t, engine.AlgorithmLive, update.Prediction.Result.Algorithm)
	assert.InDelta(t, 1.0,
		update.Prediction.Result.HomeWin+update.Prediction.Result.Draw+update.Prediction.Result.AwayWin,
		1e-9)

	var sawPrediction bool
	for _, msg := range drainEvents(ch) {
		if msg.Kind == BroadcastPrediction {
			sawPrediction = true
		}
	}
	assert.True(t, sawPrediction, "periodic refresh must publish a prediction update")

	require.Len(t, store.snapshots, 1, "periodic refresh must persist through the writer")
	assert.Equal(t, "1001", store.snapshots[0].MatchID)
}

func TestPredictionSignalsAttachedWhenOddsCached(t *testing.T) {
	source := &stubSource{
		fixtures: []upstream.Fixture{stubFixture(1001, "2H", 60, 0, 0)},
		odds: map[int64]*upstream.OddsQuote{
			1001: {FixtureID: 1001, Bookmaker: "pinnacle", Home: 2.40, Draw: 3.40, Away: 3.20},
		},
	}
	svc, ingestion, _, _ := newTestPredictionService(source)
	ctx := context.Background()

	ingestion.poll(ctx)
	svc.refreshAll(ctx)

	update, ok := svc.Latest("1001")
	require.True(t, ok)
	require.Len(t, update.Signals, 3)
	assert.Equal(t, "home", update.Signals[0].Selection)
}

func TestPredictionOnDemand(t *testing.T) {
	source := &stubSource{fixtures: []upstream.Fixture{stubFixture(1001, "1H", 30, 0, 0)}}
	svc, ingestion, _, store := newTestPredictionService(source)
	ctx := context.Background()

	ingestion.poll(ctx)

	update, err := svc.PredictMatch(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, "1001", update.Match.ID)
	assert.NotEmpty(t, update.Prediction.OverUnder)
	assert.Empty(t, store.snapshots, "on-demand calls must not persist")
}

func TestPredictionUnknownMatch(t *testing.T) {
	svc, _, _, _ := newTestPredictionService(&stubSource{})

	_, err := svc.PredictMatch(context.Background(), "nope")
	assert.Error(t, err)
}

func TestPredictionFinishedMatchReleasesState(t *testing.T) {
	source := &stubSource{fixtures: []upstream.Fixture{stubFixture(1001, "2H", 89, 2, 1)}}
	svc, ingestion, _, store := newTestPredictionService(source)
	ctx := context.Background()

	ingestion.poll(ctx)
	svc.refreshAll(ctx)
	assert.Equal(t, 1, svc.state.ActiveMatches())

	source.fixtures = []upstream.Fixture{stubFixture(1001, "FT", 90, 2, 1)}
	ingestion.poll(ctx)
	svc.refreshAll(ctx)

	assert.Equal(t, 0, svc.state.ActiveMatches(), "finished match state is released")
	require.Len(t, store.results, 1)
	assert.Equal(t, models.OutcomeHomeWin, store.results[0].Outcome)
}

func TestPredictionBatchIsStateless(t *testing.T) {
	svc, _, _, _ := newTestPredictionService(&stubSource{})

	matches := []models.LiveMatch{
		{ID: "b1", HomeTeam: "A", AwayTeam: "B", Minute: 70, HomeScore: 1, Status: models.StatusLive,
			HomeStats: models.TeamStats{Possession: 60, ShotsOnTarget: 5},
			AwayStats: models.TeamStats{Possession: 40}},
	}

	first := svc.PredictBatch(matches)
	second := svc.PredictBatch(matches)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Prediction.Result.HomeWin, second[0].Prediction.Result.HomeWin,
		"batch evaluation is deterministic, no live state bleeds in")
	assert.Equal(t, 0, svc.state.ActiveMatches())
}

func TestPredictionLatestPrunedWithFeed(t *testing.T) {
	source := &stubSource{fixtures: []upstream.Fixture{stubFixture(1001, "2H", 60, 0, 0)}}
	svc, ingestion, _, _ := newTestPredictionService(source)
	ctx := context.Background()

	ingestion.poll(ctx)
	svc.refreshAll(ctx)
	_, ok := svc.Latest("1001")
	require.True(t, ok)

	source.fixtures = nil
	ingestion.poll(ctx)
	svc.refreshAll(ctx)

	_, ok = svc.Latest("1001")
	assert.False(t, ok, "evaluations for departed matches are dropped")
}
