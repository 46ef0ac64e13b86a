package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/project-planner-api/internal/constants"
	"github.com/yukikurage/project-planner-api/internal/dateutil"
	"github.com/yukikurage/project-planner-api/internal/models"
	"github.com/yukikurage/project-planner-api/internal/repository"
	"github.com/yukikurage/project-planner-api/internal/utils"
)

// ProjectService handles project business logic
type ProjectService struct {
	store      repository.Store
	aggregator *ProgressAggregator
	locks      *ProjectLocks
	clock      dateutil.Clock
	logger     *zap.Logger
}

// NewProjectService creates a new ProjectService
func NewProjectService(store repository.Store, aggregator *ProgressAggregator, locks *ProjectLocks, clock dateutil.Clock, logger *zap.Logger) *ProjectService {
	return &ProjectService{
		store:      store,
		aggregator: aggregator,
		locks:      locks,
		clock:      clock,
		logger:     logger,
	}
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	OwnerID     uint64
	Name        string
	Description string
	Timeline    int
	StartDate   *time.Time
	DueDate     *time.Time
	Priority    models.Priority
	Category    string
}

// UpdateProjectInput represents input for updating a project. Nil fields are
// left unchanged.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Timeline    *int
	StartDate   *time.Time
	DueDate     *time.Time
	Priority    *models.Priority
	Category    *string
	Progress    *int
	Status      *models.ProjectStatus
}

// ListProjectsInput represents filters for listing projects
type ListProjectsInput struct {
	OwnerID  uint64
	Status   *models.ProjectStatus
	Priority *models.Priority
	Category string
	Page     utils.PaginationParams
}

// CreateProject validates the input, reconciles the timeline with the dates
// and stores the project.
func (s *ProjectService) CreateProject(ctx context.Context, input CreateProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if input.Timeline < 0 {
		return nil, ErrInvalidTimeline
	}
	priority := models.PriorityMedium
	if input.Priority != "" {
		p, ok := models.ParsePriority(string(input.Priority))
		if !ok {
			return nil, ErrInvalidPriority
		}
		priority = p
	}

	start, due, timeline, err := s.reconcileWindow(input.StartDate, input.DueDate, input.Timeline)
	if err != nil {
		return nil, err
	}

	project := &models.Project{
		OwnerID:     input.OwnerID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Timeline:    timeline,
		StartDate:   start,
		DueDate:     due,
		Priority:    priority,
		Category:    strings.TrimSpace(input.Category),
		Progress:    0,
		Status:      models.ProjectStatusPending,
	}

	if err := s.store.Projects().Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.logger.Info("project created", zap.Uint64("project_id", project.ID), zap.Uint64("owner_id", project.OwnerID))
	return project, nil
}

// reconcileWindow fills missing dates: start defaults to today, due to
// start+timeline (30 days without a timeline). A missing timeline is derived
// from the dates.
func (s *ProjectService) reconcileWindow(startDate, dueDate *time.Time, timeline int) (time.Time, time.Time, int, error) {
	start := dateutil.StartOfDay(s.clock.Now())
	if startDate != nil {
		start = *startDate
	}

	var due time.Time
	switch {
	case dueDate != nil:
		due = *dueDate
	case timeline > 0:
		due = dateutil.AddDays(start, timeline)
	default:
		timeline = constants.DefaultTimelineDays
		due = dateutil.AddDays(start, timeline)
	}

	if !start.Before(due) {
		return time.Time{}, time.Time{}, 0, ErrInvalidDateRange
	}
	if timeline <= 0 {
		timeline = dateutil.DaysBetween(start, due)
		if timeline == 0 {
			timeline = 1
		}
	}
	return start, due, timeline, nil
}

// GetProject returns a project owned by ownerID. Projects of other owners are
// reported as not found.
func (s *ProjectService) GetProject(ctx context.Context, ownerID, projectID uint64) (*models.Project, error) {
	project, err := s.store.Projects().FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	if project.OwnerID != ownerID {
		return nil, ErrProjectNotFound
	}
	return project, nil
}

// ListProjects returns the caller's projects ordered by due date
func (s *ProjectService) ListProjects(ctx context.Context, input ListProjectsInput) ([]models.Project, int64, error) {
	projects, total, err := s.store.Projects().List(ctx, repository.ProjectFilter{
		OwnerID:  input.OwnerID,
		Status:   input.Status,
		Priority: input.Priority,
		Category: input.Category,
		Page:     input.Page,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, total, nil
}

// UpdateProject applies a partial update. Progress and status may only be
// written while the project has no subtasks, and a new window must still
// contain every subtask.
func (s *ProjectService) UpdateProject(ctx context.Context, projectID uint64, input UpdateProjectInput) (*models.Project, error) {
	unlock := s.locks.Lock(projectID)
	defer unlock()

	var updated *models.Project
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		project, err := findProject(ctx, tx, projectID)
		if err != nil {
			return err
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return ErrNameRequired
			}
			project.Name = name
		}
		if input.Description != nil {
			project.Description = strings.TrimSpace(*input.Description)
		}
		if input.Category != nil {
			project.Category = strings.TrimSpace(*input.Category)
		}
		if input.Priority != nil {
			p, ok := models.ParsePriority(string(*input.Priority))
			if !ok {
				return ErrInvalidPriority
			}
			project.Priority = p
		}

		if err := s.applyWindow(ctx, tx, project, input); err != nil {
			return err
		}
		if err := s.applyProgress(ctx, tx, project, input); err != nil {
			return err
		}

		if err := tx.Projects().Update(ctx, project); err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}
		updated = project
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *ProjectService) applyWindow(ctx context.Context, tx repository.Store, project *models.Project, input UpdateProjectInput) error {
	if input.Timeline != nil && *input.Timeline <= 0 {
		return ErrInvalidTimeline
	}
	if input.StartDate == nil && input.DueDate == nil {
		if input.Timeline != nil {
			project.Timeline = *input.Timeline
		}
		return nil
	}

	start, due := project.StartDate, project.DueDate
	if input.StartDate != nil {
		start = *input.StartDate
	}
	if input.DueDate != nil {
		due = *input.DueDate
	}
	if !start.Before(due) {
		return ErrInvalidDateRange
	}

	subtasks, err := tx.Subtasks().ListByProject(ctx, project.ID, repository.SubtaskFilter{})
	if err != nil {
		return fmt.Errorf("failed to list subtasks: %w", err)
	}
	for _, st := range subtasks {
		if st.StartDate.Before(start) || st.DueDate.After(due) {
			return ErrWindowExcludes
		}
	}

	project.StartDate, project.DueDate = start, due
	if input.Timeline != nil {
		project.Timeline = *input.Timeline
	} else {
		project.Timeline = max(1, dateutil.DaysBetween(start, due))
	}
	return nil
}

func (s *ProjectService) applyProgress(ctx context.Context, tx repository.Store, project *models.Project, input UpdateProjectInput) error {
	if input.Progress == nil && input.Status == nil {
		return nil
	}

	counts, err := tx.Subtasks().CountByStatus(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("failed to count subtasks: %w", err)
	}
	if counts.Total > 0 {
		return ErrProgressDerived
	}

	if input.Progress != nil {
		if *input.Progress < 0 || *input.Progress > 100 {
			return ErrInvalidProgress
		}
		project.Progress = *input.Progress
	}
	if input.Status != nil {
		status, ok := models.ParseProjectStatus(string(*input.Status))
		if !ok {
			return ErrInvalidStatus
		}
		project.Status = status
	}
	return nil
}

// DeleteProject deletes a project and all of its subtasks
func (s *ProjectService) DeleteProject(ctx context.Context, projectID uint64) error {
	unlock := s.locks.Lock(projectID)
	defer unlock()

	if err := s.store.Projects().Delete(ctx, projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	s.logger.Info("project deleted", zap.Uint64("project_id", projectID))
	return nil
}

// RecalculateProgress forces a progress recomputation for the project.
func (s *ProjectService) RecalculateProgress(ctx context.Context, projectID uint64) (int, models.ProjectStatus, error) {
	unlock := s.locks.Lock(projectID)
	defer unlock()
	return s.aggregator.Recalculate(ctx, projectID)
}
