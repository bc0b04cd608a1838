package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddscope/matchpulse/internal/models"
)

// MockPoolAdapter wraps pgxmock.PgxPoolIface to implement DatabasePool interface
type MockPoolAdapter struct {
	mock pgxmock.PgxPoolIface
}

func NewMockPoolAdapter(mock pgxmock.PgxPoolIface) DatabasePool {
	return &MockPoolAdapter{mock: mock}
}

func (m *MockPoolAdapter) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return m.mock.QueryRow(ctx, sql, args...)
}

func (m *MockPoolAdapter) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	result, err := m.mock.Exec(ctx, sql, args...)
	if err == nil {
		rows := result.RowsAffected()
		return pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", rows)), nil
	}
	return pgconn.CommandTag{}, err
}

func (m *MockPoolAdapter) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return m.mock.Query(ctx, sql, args...)
}

func newMockRepo(t *testing.T) (*PredictionRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPredictionRepository(NewMockPoolAdapter(mock)), mock
}

func TestUpsertSnapshot(t *testing.T) {
	repo, mock := newMockRepo(t)

	rec := &models.SnapshotRecord{
		MatchID:     "fx-100",
		HomeTeam:    "Home FC",
		AwayTeam:    "Away FC",
		League:      "Premier League",
		HomeScore:   1,
		AwayScore:   0,
		Minute:      55,
		Status:      models.StatusLive,
		HomeWinProb: 0.61,
		DrawProb:    0.27,
		AwayWinProb: 0.12,
		Confidence:  0.84,
		Algorithm:   "live-poisson-v2",
		Features:    map[string]any{"momentum_home": 63.2},
	}

	mock.ExpectExec("INSERT INTO prediction_snapshots").
		WithArgs(
			rec.MatchID, rec.HomeTeam, rec.AwayTeam, rec.League,
			rec.HomeScore, rec.AwayScore, rec.Minute, string(rec.Status),
			rec.HomeWinProb, rec.DrawProb, rec.AwayWinProb,
			rec.Confidence, rec.Algorithm, pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.UpsertSnapshot(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertResult(t *testing.T) {
	repo, mock := newMockRepo(t)

	res := &models.MatchResult{
		MatchID:    "fx-100",
		HomeTeam:   "Home FC",
		AwayTeam:   "Away FC",
		League:     "Premier League",
		HomeScore:  2,
		AwayScore:  1,
		Outcome:    models.OutcomeHomeWin,
		FinishedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO match_results").
		WithArgs(
			res.MatchID, res.HomeTeam, res.AwayTeam, res.League,
			res.HomeScore, res.AwayScore, string(res.Outcome), res.FinishedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.InsertResult(context.Background(), res))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchHistory(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{
		"id", "match_id", "home_team", "away_team", "league",
		"home_score", "away_score", "minute", "status",
		"home_win_prob", "draw_prob", "away_win_prob",
		"confidence", "algorithm", "created_at",
	}).
		AddRow(int64(1), "fx-100", "Home FC", "Away FC", "Premier League",
			0, 0, 10, "live", 0.45, 0.30, 0.25, 0.65, "live-poisson-v2", now).
		AddRow(int64(2), "fx-100", "Home FC", "Away FC", "Premier League",
			1, 0, 34, "live", 0.66, 0.22, 0.12, 0.74, "live-poisson-v2", now)

	mock.ExpectQuery("FROM prediction_snapshots").
		WithArgs("fx-100").
		WillReturnRows(rows)

	history, err := repo.MatchHistory(context.Background(), "fx-100")
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, 10, history[0].Minute)
	assert.Equal(t, models.StatusLive, history[0].Status)
	assert.Equal(t, 0.66, history[1].HomeWinProb)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccuracyStats(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{
		"match_id", "outcome", "finished_at",
		"home_win_prob", "draw_prob", "away_win_prob", "confidence",
	}).
		AddRow("fx-1", "home_win", now, 0.70, 0.20, 0.10, 0.90).
		AddRow("fx-2", "draw", now.Add(-time.Hour), 0.55, 0.30, 0.15, 0.75).
		AddRow("fx-3", "away_win", now.Add(-2*time.Hour), 0.20, 0.25, 0.55, 0.65)

	mock.ExpectQuery("FROM match_results").
		WithArgs(50).
		WillReturnRows(rows)

	stats, err := repo.AccuracyStats(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Matches)
	assert.Equal(t, int64(2), stats.Correct, "fx-1 and fx-3 were called correctly")
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)
	assert.Equal(t, int64(1), stats.ByOutcome["draw"])
	assert.Len(t, stats.ByConfidence, 3)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSummary(t *testing.T) {
	repo, mock := newMockRepo(t)
	oldest := time.Now().Add(-48 * time.Hour).UTC()
	newest := time.Now().UTC()

	mock.ExpectQuery("SELECT").
		WillReturnRows(pgxmock.NewRows([]string{"c1", "c2", "c3", "min", "max"}).
			AddRow(int64(120), int64(8), int64(12), oldest, newest))

	summary, err := repo.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(120), summary.SnapshotCount)
	assert.Equal(t, int64(8), summary.ResultCount)
	assert.Equal(t, int64(12), summary.TrackedMatches)
	require.NotNil(t, summary.OldestSnapshot)
	assert.True(t, oldest.Equal(*summary.OldestSnapshot))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSnapshotsBefore(t *testing.T) {
	repo, mock := newMockRepo(t)
	cutoff := time.Now().Add(-30 * 24 * time.Hour)

	mock.ExpectExec("DELETE FROM prediction_snapshots").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 42))

	deleted, err := repo.DeleteSnapshotsBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(42), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredictedOutcome(t *testing.T) {
	assert.Equal(t, models.OutcomeHomeWin, predictedOutcome(0.5, 0.3, 0.2))
	assert.Equal(t, models.OutcomeAwayWin, predictedOutcome(0.2, 0.3, 0.5))
	assert.Equal(t, models.OutcomeDraw, predictedOutcome(0.3, 0.4, 0.3))
}

func TestConfidenceBucket(t *testing.T) {
	assert.Equal(t, "low", confidenceBucket(0.65))
	assert.Equal(t, "medium", confidenceBucket(0.75))
	assert.Equal(t, "high", confidenceBucket(0.9))
}
