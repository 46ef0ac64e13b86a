package services

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/yukikurage/project-planner-api/internal/models"
	"github.com/yukikurage/project-planner-api/internal/repository"
)

// ComputeProgress derives a project's progress and status from its subtask
// counts.
func ComputeProgress(counts repository.StatusCounts) (int, models.ProjectStatus) {
	if counts.Total <= 0 {
		return 0, models.ProjectStatusPending
	}

	progress := int(math.Round(float64(counts.Completed) / float64(counts.Total) * 100))
	switch {
	case counts.Completed == counts.Total:
		return progress, models.ProjectStatusCompleted
	case counts.InProgress > 0 || counts.Completed > 0:
		return progress, models.ProjectStatusInProgress
	default:
		return progress, models.ProjectStatusPending
	}
}

// ProgressAggregator keeps Project.Progress and Project.Status in sync with
// the project's subtasks.
type ProgressAggregator struct {
	store  repository.Store
	logger *zap.Logger
}

func NewProgressAggregator(store repository.Store, logger *zap.Logger) *ProgressAggregator {
	return &ProgressAggregator{store: store, logger: logger}
}

// Recalculate recounts the project's subtasks and writes the derived values
// in a single transaction.
func (a *ProgressAggregator) Recalculate(ctx context.Context, projectID uint64) (int, models.ProjectStatus, error) {
	var (
		progress int
		status   models.ProjectStatus
	)
	err := a.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		progress, status, err = a.RecalculateTx(ctx, tx, projectID)
		return err
	})
	return progress, status, err
}

// RecalculateTx is Recalculate for callers that already run a transaction.
func (a *ProgressAggregator) RecalculateTx(ctx context.Context, tx repository.Store, projectID uint64) (int, models.ProjectStatus, error) {
	counts, err := tx.Subtasks().CountByStatus(ctx, projectID)
	if err != nil {
		return 0, "", fmt.Errorf("failed to count subtasks: %w", err)
	}

	progress, status := ComputeProgress(counts)
	if err := tx.Projects().UpdateProgress(ctx, projectID, progress, status); err != nil {
		return 0, "", fmt.Errorf("failed to update project progress: %w", err)
	}

	a.logger.Debug("project progress recalculated",
		zap.Uint64("project_id", projectID),
		zap.Int64("subtasks", counts.Total),
		zap.Int64("completed", counts.Completed),
		zap.Int("progress", progress),
		zap.String("status", string(status)),
	)
	return progress, status, nil
}
