package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/logging"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/repositories"
)

// DefaultRetentionDays is the default retention period for run history.
const DefaultRetentionDays = 30

// RunHistoryService records script runs and serves the history listing.
type RunHistoryService interface {
	// Record stores a run. Parameter values are sanitized before storage.
	Record(ctx context.Context, run *models.ScriptRun) error

	// List returns runs matching the filters, newest first, and the total match count.
	List(ctx context.Context, filters models.ScriptRunFilters) ([]*models.ScriptRun, int, error)

	// PruneOlderThan removes runs older than retentionDays and returns how many were deleted.
	PruneOlderThan(ctx context.Context, retentionDays int) (int64, error)

	// RunScheduler starts a background goroutine that prunes on the given interval.
	// It runs immediately on startup, then repeats every interval.
	// Cancel the context to stop the scheduler.
	RunScheduler(ctx context.Context, retentionDays int, interval time.Duration)
}

type runHistoryService struct {
	repo   repositories.RunHistoryRepository
	logger *zap.Logger
}

// NewRunHistoryService creates a new run history service.
func NewRunHistoryService(repo repositories.RunHistoryRepository, logger *zap.Logger) RunHistoryService {
	return &runHistoryService{
		repo:   repo,
		logger: logger.Named("run-history-service"),
	}
}

var _ RunHistoryService = (*runHistoryService)(nil)

func (s *runHistoryService) Record(ctx context.Context, run *models.ScriptRun) error {
	run.Parameters = logging.SanitizeParameters(run.Parameters)
	if run.ErrorMessage != nil {
		msg := logging.TruncateString(*run.ErrorMessage, 4000)
		run.ErrorMessage = &msg
	}

	if err := s.repo.Create(ctx, run); err != nil {
		return fmt.Errorf("failed to record script run: %w", err)
	}

	s.logger.Debug("Recorded script run",
		zap.String("id", run.ID.String()),
		zap.String("file", run.FileName),
		zap.String("status", string(run.Status)))
	return nil
}

func (s *runHistoryService) List(ctx context.Context, filters models.ScriptRunFilters) ([]*models.ScriptRun, int, error) {
	runs, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list script runs: %w", err)
	}
	return runs, total, nil
}

func (s *runHistoryService) PruneOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune run history: %w", err)
	}

	if deleted > 0 {
		s.logger.Info("Run history cleanup completed",
			zap.Int("retention_days", retentionDays),
			zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

func (s *runHistoryService) RunScheduler(ctx context.Context, retentionDays int, interval time.Duration) {
	go func() {
		s.logger.Info("Retention scheduler started",
			zap.Duration("interval", interval),
			zap.Int("retention_days", retentionDays))

		s.prune(ctx, retentionDays)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Retention scheduler stopped")
				return
			case <-ticker.C:
				s.prune(ctx, retentionDays)
			}
		}
	}()
}

func (s *runHistoryService) prune(ctx context.Context, retentionDays int) {
	if _, err := s.PruneOlderThan(ctx, retentionDays); err != nil && ctx.Err() == nil {
		s.logger.Error("Retention scheduler: prune failed", zap.Error(err))
	}
}
