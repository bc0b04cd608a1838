package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oddscope/matchpulse/internal/models"
)

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	// Exec executes a query without returning any rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// PredictionRepository handles database operations for prediction
// snapshots and final match results.
type PredictionRepository struct {
	pool DatabasePool
}

func NewPredictionRepository(pool DatabasePool) *PredictionRepository {
	return &PredictionRepository{pool: pool}
}

// UpsertSnapshot writes one prediction snapshot. The
// (match_id, minute, home_score, away_score) key makes a later write
// for the same game state overwrite the earlier one.
func (r *PredictionRepository) UpsertSnapshot(ctx context.Context, rec *models.SnapshotRecord) error {
	features, err := json.Marshal(rec.Features)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot features: %w", err)
	}

	query := `
		INSERT INTO prediction_snapshots (
			match_id, home_team, away_team, league,
			home_score, away_score, minute, status,
			home_win_prob, draw_prob, away_win_prob,
			confidence, algorithm, features
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (match_id, minute, home_score, away_score)
		DO UPDATE SET
			status = EXCLUDED.status,
			home_win_prob = EXCLUDED.home_win_prob,
			draw_prob = EXCLUDED.draw_prob,
			away_win_prob = EXCLUDED.away_win_prob,
			confidence = EXCLUDED.confidence,
			algorithm = EXCLUDED.algorithm,
			features = EXCLUDED.features,
			created_at = CURRENT_TIMESTAMP
	`

	_, err = r.pool.Exec(ctx, query,
		rec.MatchID, rec.HomeTeam, rec.AwayTeam, rec.League,
		rec.HomeScore, rec.AwayScore, rec.Minute, string(rec.Status),
		rec.HomeWinProb, rec.DrawProb, rec.AwayWinProb,
		rec.Confidence, rec.Algorithm, features,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert prediction snapshot: %w", err)
	}
	return nil
}

// InsertResult writes the final result for a match. A result is written
// once; repeated finished polls are ignored by the conflict clause.
func (r *PredictionRepository) InsertResult(ctx context.Context, res *models.MatchResult) error {
	query := `
		INSERT INTO match_results (
			match_id, home_team, away_team, league,
			home_score, away_score, outcome, finished_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (match_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		res.MatchID, res.HomeTeam, res.AwayTeam, res.League,
		res.HomeScore, res.AwayScore, string(res.Outcome), res.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert match result: %w", err)
	}
	return nil
}

// MatchHistory returns all persisted snapshots for one match ordered by
// match minute.
func (r *PredictionRepository) MatchHistory(ctx context.Context, matchID string) ([]models.SnapshotRecord, error) {
	query := `
		SELECT id, match_id, home_team, away_team, league,
			home_score, away_score, minute, status,
			home_win_prob, draw_prob, away_win_prob,
			confidence, algorithm, created_at
		FROM prediction_snapshots
		WHERE match_id = $1
		ORDER BY minute, created_at
	`

	rows, err := r.pool.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query match history: %w", err)
	}
	defer rows.Close()

	var history []models.SnapshotRecord
	for rows.Next() {
		var rec models.SnapshotRecord
		var status string
		if err := rows.Scan(
			&rec.ID, &rec.MatchID, &rec.HomeTeam, &rec.AwayTeam, &rec.League,
			&rec.HomeScore, &rec.AwayScore, &rec.Minute, &status,
			&rec.HomeWinProb, &rec.DrawProb, &rec.AwayWinProb,
			&rec.Confidence, &rec.Algorithm, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		rec.Status = models.MatchStatus(status)
		history = append(history, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}
	return history, nil
}

// AccuracyStats compares the last pre-final prediction of the most
// recent resolved matches against their actual outcome, bucketed by
// confidence.
func (r *PredictionRepository) AccuracyStats(ctx context.Context, limit int) (*models.AccuracyStats, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		WITH recent AS (
			SELECT match_id, outcome, finished_at
			FROM match_results
			ORDER BY finished_at DESC
			LIMIT $1
		),
		last_pred AS (
			SELECT DISTINCT ON (s.match_id)
				s.match_id, s.home_win_prob, s.draw_prob, s.away_win_prob, s.confidence
			FROM prediction_snapshots s
			JOIN recent r ON r.match_id = s.match_id
			WHERE s.status <> 'finished'
			ORDER BY s.match_id, s.created_at DESC
		)
		SELECT r.match_id, r.outcome, r.finished_at,
			p.home_win_prob, p.draw_prob, p.away_win_prob, p.confidence
		FROM recent r
		JOIN last_pred p ON p.match_id = r.match_id
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query accuracy stats: %w", err)
	}
	defer rows.Close()

	stats := &models.AccuracyStats{ByOutcome: make(map[string]int64)}
	buckets := map[string]*models.AccuracyBucket{}

	for rows.Next() {
		var (
			matchID, outcome       string
			finishedAt             time.Time
			home, draw, away, conf float64
		)
		if err := rows.Scan(&matchID, &outcome, &finishedAt, &home, &draw, &away, &conf); err != nil {
			return nil, fmt.Errorf("failed to scan accuracy row: %w", err)
		}

		predicted := predictedOutcome(home, draw, away)
		correct := string(predicted) == outcome

		stats.Matches++
		stats.ByOutcome[outcome]++
		if correct {
			stats.Correct++
		}

		name := confidenceBucket(conf)
		b, ok := buckets[name]
		if !ok {
			b = &models.AccuracyBucket{Bucket: name}
			buckets[name] = b
		}
		b.Total++
		if correct {
			b.Correct++
		}

		if stats.OldestResult == nil || finishedAt.Before(*stats.OldestResult) {
			t := finishedAt
			stats.OldestResult = &t
		}
		if stats.NewestResult == nil || finishedAt.After(*stats.NewestResult) {
			t := finishedAt
			stats.NewestResult = &t
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accuracy rows: %w", err)
	}

	if stats.Matches > 0 {
		stats.HitRate = float64(stats.Correct) / float64(stats.Matches)
	}
	for _, name := range []string{"low", "medium", "high"} {
		if b, ok := buckets[name]; ok {
			if b.Total > 0 {
				b.HitRate = float64(b.Correct) / float64(b.Total)
			}
			stats.ByConfidence = append(stats.ByConfidence, *b)
		}
	}
	return stats, nil
}

// Summary returns row counts and time ranges for the store.
func (r *PredictionRepository) Summary(ctx context.Context) (*models.StoreSummary, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM prediction_snapshots),
			(SELECT COUNT(*) FROM match_results),
			(SELECT COUNT(DISTINCT match_id) FROM prediction_snapshots),
			(SELECT MIN(created_at) FROM prediction_snapshots),
			(SELECT MAX(created_at) FROM prediction_snapshots)
	`

	var summary models.StoreSummary
	var oldest, newest sql.NullTime
	err := r.pool.QueryRow(ctx, query).Scan(
		&summary.SnapshotCount, &summary.ResultCount, &summary.TrackedMatches,
		&oldest, &newest,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query store summary: %w", err)
	}
	if oldest.Valid {
		summary.OldestSnapshot = &oldest.Time
	}
	if newest.Valid {
		summary.NewestSnapshot = &newest.Time
	}
	return &summary, nil
}

// DeleteSnapshotsBefore removes snapshots older than the cutoff and
// returns the number of rows deleted.
func (r *PredictionRepository) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM prediction_snapshots WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}

func predictedOutcome(home, draw, away float64) models.MatchOutcome {
	switch {
	case home >= draw && home >= away:
		return models.OutcomeHomeWin
	case away >= draw:
		return models.OutcomeAwayWin
	default:
		return models.OutcomeDraw
	}
}

func confidenceBucket(confidence float64) string {
	switch {
	case confidence < 0.70:
		return "low"
	case confidence < 0.85:
		return "medium"
	default:
		return "high"
	}
}
