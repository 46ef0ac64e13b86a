package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yukikurage/project-planner-api/internal/constants"
	"github.com/yukikurage/project-planner-api/internal/dateutil"
	"github.com/yukikurage/project-planner-api/internal/models"
	"github.com/yukikurage/project-planner-api/internal/repository"
)

// SubtaskService handles subtask business logic. Every mutation runs under
// the project's lock and recalculates the project's progress in the same
// transaction.
type SubtaskService struct {
	store      repository.Store
	aggregator *ProgressAggregator
	locks      *ProjectLocks
	clock      dateutil.Clock
	logger     *zap.Logger
}

// NewSubtaskService creates a new SubtaskService
func NewSubtaskService(store repository.Store, aggregator *ProgressAggregator, locks *ProjectLocks, clock dateutil.Clock, logger *zap.Logger) *SubtaskService {
	return &SubtaskService{
		store:      store,
		aggregator: aggregator,
		locks:      locks,
		clock:      clock,
		logger:     logger,
	}
}

// CreateSubtaskInput represents input for creating a subtask
type CreateSubtaskInput struct {
	Title          string
	Description    string
	Order          *int
	Priority       models.Priority
	EstimatedHours *float64
	Status         models.SubtaskStatus
	Phase          models.Phase
	Complexity     models.Complexity
	RiskLevel      models.RiskLevel
	StartDate      *time.Time
	DueDate        *time.Time
	Dependencies   []uint64
	Tags           []string
	Skills         []string
}

// UpdateSubtaskInput represents input for updating a subtask. Nil fields are
// left unchanged.
type UpdateSubtaskInput struct {
	Title          *string
	Description    *string
	Order          *int
	Priority       *models.Priority
	EstimatedHours *float64
	Status         *models.SubtaskStatus
	Phase          *models.Phase
	Complexity     *models.Complexity
	RiskLevel      *models.RiskLevel
	StartDate      *time.Time
	DueDate        *time.Time
	Dependencies   *[]uint64
	Tags           *[]string
	Skills         *[]string
}

// BulkUpdateResult reports the outcome of a bulk status change. Updated
// counts the matched subtasks, Changed only those whose status moved.
type BulkUpdateResult struct {
	Updated  int64
	Changed  int64
	Progress int
	Status   models.ProjectStatus
}

// ListSubtasks returns the subtasks of a project in order
func (s *SubtaskService) ListSubtasks(ctx context.Context, projectID uint64, filter repository.SubtaskFilter) ([]models.Subtask, error) {
	subtasks, err := s.store.Subtasks().ListByProject(ctx, projectID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list subtasks: %w", err)
	}
	return subtasks, nil
}

// GetSubtask returns one subtask of a project
func (s *SubtaskService) GetSubtask(ctx context.Context, projectID, subtaskID uint64) (*models.Subtask, error) {
	return findSubtask(ctx, s.store, projectID, subtaskID)
}

// CreateSubtask adds a subtask to the project. Missing dates are placed at
// the earliest possible point of the project window.
func (s *SubtaskService) CreateSubtask(ctx context.Context, project *models.Project, input CreateSubtaskInput) (*models.Subtask, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	subtask := &models.Subtask{
		ProjectID:      project.ID,
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		Priority:       models.PriorityMedium,
		EstimatedHours: constants.DefaultEstimatedHours,
		Status:         models.SubtaskStatusPending,
		Phase:          models.PhaseExecution,
		Complexity:     models.ComplexityMedium,
		RiskLevel:      models.RiskLow,
		Dependencies:   datatypes.JSONSlice[uint64]{},
		Tags:           datatypes.JSONSlice[string](nonNil(input.Tags)),
		Skills:         datatypes.JSONSlice[string](nonNil(input.Skills)),
	}
	if err := applyEnums(subtask, &input.Priority, &input.Status, &input.Phase, &input.Complexity, &input.RiskLevel); err != nil {
		return nil, err
	}
	if input.EstimatedHours != nil {
		if *input.EstimatedHours < constants.MinEstimatedHours {
			return nil, ErrInvalidHours
		}
		subtask.EstimatedHours = *input.EstimatedHours
	}
	if subtask.Status == models.SubtaskStatusCompleted {
		now := s.clock.Now()
		subtask.CompletedDate = &now
	}

	unlock := s.locks.Lock(project.ID)
	defer unlock()

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		// The window may have changed since the caller loaded the project.
		current, err := findProject(ctx, tx, project.ID)
		if err != nil {
			return err
		}
		start, due, err := s.placeDates(current, input.StartDate, input.DueDate, subtask.EstimatedHours)
		if err != nil {
			return err
		}
		subtask.StartDate, subtask.DueDate = start, due

		order, err := s.resolveOrder(ctx, tx, project.ID, 0, input.Order)
		if err != nil {
			return err
		}
		subtask.Order = order

		deps, err := validateDependencies(ctx, tx, project.ID, 0, input.Dependencies)
		if err != nil {
			return err
		}
		subtask.Dependencies = deps

		if err := tx.Subtasks().Create(ctx, subtask); err != nil {
			return fmt.Errorf("failed to create subtask: %w", err)
		}
		_, _, err = s.aggregator.RecalculateTx(ctx, tx, project.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return subtask, nil
}

// UpdateSubtask applies a partial update to a subtask
func (s *SubtaskService) UpdateSubtask(ctx context.Context, project *models.Project, subtaskID uint64, input UpdateSubtaskInput) (*models.Subtask, error) {
	unlock := s.locks.Lock(project.ID)
	defer unlock()

	var updated *models.Subtask
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		subtask, err := findSubtask(ctx, tx, project.ID, subtaskID)
		if err != nil {
			return err
		}

		if input.Title != nil {
			title := strings.TrimSpace(*input.Title)
			if title == "" {
				return ErrTitleRequired
			}
			subtask.Title = title
		}
		if input.Description != nil {
			subtask.Description = strings.TrimSpace(*input.Description)
		}
		if input.EstimatedHours != nil {
			if *input.EstimatedHours < constants.MinEstimatedHours {
				return ErrInvalidHours
			}
			subtask.EstimatedHours = *input.EstimatedHours
		}
		if input.Tags != nil {
			subtask.Tags = datatypes.JSONSlice[string](nonNil(*input.Tags))
		}
		if input.Skills != nil {
			subtask.Skills = datatypes.JSONSlice[string](nonNil(*input.Skills))
		}

		previous := subtask.Status
		if err := applyEnums(subtask, input.Priority, input.Status, input.Phase, input.Complexity, input.RiskLevel); err != nil {
			return err
		}
		s.trackCompletion(subtask, previous)

		if input.StartDate != nil || input.DueDate != nil {
			start, due := subtask.StartDate, subtask.DueDate
			if input.StartDate != nil {
				start = *input.StartDate
			}
			if input.DueDate != nil {
				due = *input.DueDate
			}
			current, err := findProject(ctx, tx, project.ID)
			if err != nil {
				return err
			}
			if err := checkWindow(current, start, due); err != nil {
				return err
			}
			subtask.StartDate, subtask.DueDate = start, due
		}

		if input.Order != nil {
			order, err := s.resolveOrder(ctx, tx, project.ID, subtask.ID, input.Order)
			if err != nil {
				return err
			}
			subtask.Order = order
		}

		if input.Dependencies != nil {
			deps, err := validateDependencies(ctx, tx, project.ID, subtask.ID, *input.Dependencies)
			if err != nil {
				return err
			}
			subtask.Dependencies = deps
		}

		if err := tx.Subtasks().Update(ctx, subtask); err != nil {
			return fmt.Errorf("failed to update subtask: %w", err)
		}
		if _, _, err := s.aggregator.RecalculateTx(ctx, tx, project.ID); err != nil {
			return err
		}
		updated = subtask
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteSubtask deletes a subtask and removes it from the dependencies of
// its siblings
func (s *SubtaskService) DeleteSubtask(ctx context.Context, project *models.Project, subtaskID uint64) error {
	unlock := s.locks.Lock(project.ID)
	defer unlock()

	return s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := findSubtask(ctx, tx, project.ID, subtaskID); err != nil {
			return err
		}
		if err := tx.Subtasks().Delete(ctx, subtaskID); err != nil {
			return fmt.Errorf("failed to delete subtask: %w", err)
		}

		siblings, err := tx.Subtasks().ListByProject(ctx, project.ID, repository.SubtaskFilter{})
		if err != nil {
			return fmt.Errorf("failed to list subtasks: %w", err)
		}
		for _, sibling := range siblings {
			if !sibling.DependsOn(subtaskID) {
				continue
			}
			remaining := make([]uint64, 0, len(sibling.Dependencies))
			for _, dep := range sibling.Dependencies {
				if dep != subtaskID {
					remaining = append(remaining, dep)
				}
			}
			if err := tx.Subtasks().UpdateDependencies(ctx, sibling.ID, remaining); err != nil {
				return fmt.Errorf("failed to update dependencies of subtask %d: %w", sibling.ID, err)
			}
		}

		_, _, err = s.aggregator.RecalculateTx(ctx, tx, project.ID)
		return err
	})
}

// BulkUpdateStatus moves several subtasks of a project to the same status
func (s *SubtaskService) BulkUpdateStatus(ctx context.Context, project *models.Project, subtaskIDs []uint64, status models.SubtaskStatus) (*BulkUpdateResult, error) {
	ids := uniqueUint64(subtaskIDs)
	if len(ids) == 0 {
		return nil, ErrNoSubtaskIDs
	}
	parsed, ok := models.ParseSubtaskStatus(string(status))
	if !ok {
		return nil, ErrInvalidStatus
	}

	var completedDate *time.Time
	if parsed == models.SubtaskStatusCompleted {
		now := s.clock.Now()
		completedDate = &now
	}

	unlock := s.locks.Lock(project.ID)
	defer unlock()

	result := &BulkUpdateResult{}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		count, err := tx.Subtasks().CountInProject(ctx, project.ID, ids)
		if err != nil {
			return fmt.Errorf("failed to verify subtasks: %w", err)
		}
		if int(count) != len(ids) {
			return ErrSubtaskNotFound
		}

		result.Updated = count
		result.Changed, err = tx.Subtasks().BulkUpdateStatus(ctx, project.ID, ids, parsed, completedDate)
		if err != nil {
			return fmt.Errorf("failed to update subtask status: %w", err)
		}

		result.Progress, result.Status, err = s.aggregator.RecalculateTx(ctx, tx, project.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("subtask status bulk update",
		zap.Uint64("project_id", project.ID),
		zap.String("status", string(parsed)),
		zap.Int64("updated", result.Updated),
		zap.Int64("changed", result.Changed),
		zap.Int("progress", result.Progress),
	)
	return result, nil
}

// trackCompletion keeps CompletedDate set iff the subtask is completed.
func (s *SubtaskService) trackCompletion(subtask *models.Subtask, previous models.SubtaskStatus) {
	switch {
	case subtask.Status == models.SubtaskStatusCompleted && previous != models.SubtaskStatusCompleted:
		now := s.clock.Now()
		subtask.CompletedDate = &now
	case subtask.Status != models.SubtaskStatusCompleted:
		subtask.CompletedDate = nil
	}
}

// placeDates validates supplied dates or derives them: start defaults to the
// later of project start and today, due to start plus the estimate in days.
func (s *SubtaskService) placeDates(project *models.Project, startDate, dueDate *time.Time, hours float64) (time.Time, time.Time, error) {
	var start time.Time
	if startDate != nil {
		start = *startDate
	} else {
		today := dateutil.StartOfDay(s.clock.Now().In(project.StartDate.Location()))
		start = dateutil.Clamp(today, project.StartDate, project.DueDate)
	}

	var due time.Time
	if dueDate != nil {
		due = *dueDate
	} else {
		due = dateutil.Max(start, dateutil.Min(dateutil.AddDays(start, dateutil.DurationDays(hours)), project.DueDate))
	}

	if err := checkWindow(project, start, due); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, due, nil
}

func checkWindow(project *models.Project, start, due time.Time) error {
	if start.After(due) {
		return ErrInvalidDateRange
	}
	if !dateutil.InWindow(start, project.StartDate, project.DueDate) || !dateutil.InWindow(due, project.StartDate, project.DueDate) {
		return ErrSubtaskOutOfWindow
	}
	return nil
}

// resolveOrder returns the requested order when it is free, or the next
// order after the current maximum when none was requested.
func (s *SubtaskService) resolveOrder(ctx context.Context, tx repository.Store, projectID, subtaskID uint64, requested *int) (int, error) {
	if requested == nil {
		highest, err := tx.Subtasks().MaxOrder(ctx, projectID)
		if err != nil {
			return 0, fmt.Errorf("failed to read subtask order: %w", err)
		}
		return highest + 1, nil
	}

	if *requested < 1 {
		return 0, ErrInvalidOrder
	}
	taken, err := tx.Subtasks().OrderTaken(ctx, projectID, *requested, subtaskID)
	if err != nil {
		return 0, fmt.Errorf("failed to check subtask order: %w", err)
	}
	if taken {
		return 0, ErrOrderTaken
	}
	return *requested, nil
}

// validateDependencies checks that every dependency is another subtask of
// the project and that the resulting graph stays acyclic. subtaskID is 0 for
// a subtask that does not exist yet.
func validateDependencies(ctx context.Context, tx repository.Store, projectID, subtaskID uint64, dependencies []uint64) (datatypes.JSONSlice[uint64], error) {
	deps := uniqueUint64(dependencies)
	if len(deps) == 0 {
		return datatypes.JSONSlice[uint64]{}, nil
	}

	siblings, err := tx.Subtasks().ListByProject(ctx, projectID, repository.SubtaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list subtasks: %w", err)
	}
	graph := make(map[uint64][]uint64, len(siblings))
	for _, sibling := range siblings {
		graph[sibling.ID] = sibling.Dependencies
	}

	for _, dep := range deps {
		if _, ok := graph[dep]; !ok || dep == subtaskID {
			return nil, ErrInvalidDependency
		}
	}
	if subtaskID != 0 {
		for _, dep := range deps {
			if dependsOnTransitively(graph, dep, subtaskID) {
				return nil, ErrDependencyCycle
			}
		}
	}
	return datatypes.JSONSlice[uint64](deps), nil
}

// dependsOnTransitively reports whether from reaches target through the
// dependency graph.
func dependsOnTransitively(graph map[uint64][]uint64, from, target uint64) bool {
	visited := make(map[uint64]bool)
	stack := []uint64{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == target {
			return true
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true
		stack = append(stack, graph[cur]...)
	}
	return false
}

func findProject(ctx context.Context, store repository.Store, projectID uint64) (*models.Project, error) {
	project, err := store.Projects().FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}

func findSubtask(ctx context.Context, store repository.Store, projectID, subtaskID uint64) (*models.Subtask, error) {
	subtask, err := store.Subtasks().FindByID(ctx, projectID, subtaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubtaskNotFound
		}
		return nil, fmt.Errorf("failed to find subtask: %w", err)
	}
	return subtask, nil
}

// applyEnums validates and assigns the non-empty enum values. Nil pointers
// and empty values are ignored.
func applyEnums(subtask *models.Subtask, priority *models.Priority, status *models.SubtaskStatus, phase *models.Phase, complexity *models.Complexity, risk *models.RiskLevel) error {
	if priority != nil && *priority != "" {
		v, ok := models.ParsePriority(string(*priority))
		if !ok {
			return ErrInvalidPriority
		}
		subtask.Priority = v
	}
	if status != nil && *status != "" {
		v, ok := models.ParseSubtaskStatus(string(*status))
		if !ok {
			return ErrInvalidStatus
		}
		subtask.Status = v
	}
	if phase != nil && *phase != "" {
		v, ok := models.ParsePhase(string(*phase))
		if !ok {
			return ErrInvalidPhase
		}
		subtask.Phase = v
	}
	if complexity != nil && *complexity != "" {
		v, ok := models.ParseComplexity(string(*complexity))
		if !ok {
			return ErrInvalidComplexity
		}
		subtask.Complexity = v
	}
	if risk != nil && *risk != "" {
		v, ok := models.ParseRiskLevel(string(*risk))
		if !ok {
			return ErrInvalidRiskLevel
		}
		subtask.RiskLevel = v
	}
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// uniqueUint64 removes duplicate values from a slice of uint64
func uniqueUint64(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}
