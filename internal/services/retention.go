package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SnapshotPruner is the slice of the repository the retention job uses.
type SnapshotPruner interface {
	DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionConfig bounds how long prediction snapshots are kept.
type RetentionConfig struct {
	RetentionDays int
	Interval      time.Duration
}

// RetentionService deletes prediction snapshots older than the
// configured horizon on a timer. With no store it stays inert.
type RetentionService struct {
	store  SnapshotPruner
	cfg    RetentionConfig
	logger *logrus.Entry

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewRetentionService(store SnapshotPruner, cfg RetentionConfig) *RetentionService {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &RetentionService{
		store:  store,
		cfg:    cfg,
		logger: logrus.WithField("component", "retention"),
		stopCh: make(chan struct{}),
	}
}

// Start runs one cleanup immediately, then repeats on the interval.
func (s *RetentionService) Start(ctx context.Context) {
	if s.store == nil {
		s.logger.Info("Retention job disabled: no store configured")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runOnce(ctx)

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.runOnce(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the cleanup loop.
func (s *RetentionService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *RetentionService) runOnce(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)

	deleted, err := s.store.DeleteSnapshotsBefore(ctx, cutoff)
	if err != nil {
		s.logger.WithError(err).Error("Snapshot cleanup failed")
		return
	}
	if deleted > 0 {
		s.logger.WithFields(logrus.Fields{
			"deleted": deleted,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Pruned old prediction snapshots")
	}
}
