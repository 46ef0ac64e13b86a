package repository

import (
	"context"
	"time"

	"github.com/yukikurage/project-planner-api/internal/models"
	"github.com/yukikurage/project-planner-api/internal/utils"
)

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create creates a new project
	Create(ctx context.Context, project *models.Project) error

	// FindByID finds a project by ID
	FindByID(ctx context.Context, id uint64) (*models.Project, error)

	// List retrieves projects with filtering and pagination
	List(ctx context.Context, filter ProjectFilter) ([]models.Project, int64, error)

	// Update saves every column of a project except its subtasks
	Update(ctx context.Context, project *models.Project) error

	// UpdateProgress writes only the derived progress and status columns
	UpdateProgress(ctx context.Context, id uint64, progress int, status models.ProjectStatus) error

	// Delete soft deletes a project together with its subtasks
	Delete(ctx context.Context, id uint64) error
}

// ProjectFilter holds filtering options for listing projects
type ProjectFilter struct {
	OwnerID  uint64
	Status   *models.ProjectStatus
	Priority *models.Priority
	Category string
	Page     utils.PaginationParams
}

// SubtaskRepository defines the interface for subtask data access
type SubtaskRepository interface {
	// Create creates a single subtask
	Create(ctx context.Context, subtask *models.Subtask) error

	// CreateBatch inserts subtasks in one statement and fills in their IDs
	CreateBatch(ctx context.Context, subtasks []models.Subtask) error

	// FindByID finds a subtask that belongs to the given project
	FindByID(ctx context.Context, projectID, id uint64) (*models.Subtask, error)

	// ListByProject lists a project's subtasks in order
	ListByProject(ctx context.Context, projectID uint64, filter SubtaskFilter) ([]models.Subtask, error)

	// Update saves every column of a subtask
	Update(ctx context.Context, subtask *models.Subtask) error

	// UpdateDependencies replaces the dependency set of a subtask
	UpdateDependencies(ctx context.Context, id uint64, dependencies []uint64) error

	// BulkUpdateStatus moves the given subtasks to status and returns how many
	// changed. Subtasks already in that status are left untouched.
	// completedDate is written alongside.
	BulkUpdateStatus(ctx context.Context, projectID uint64, ids []uint64, status models.SubtaskStatus, completedDate *time.Time) (int64, error)

	// CountInProject counts how many of ids belong to the project
	CountInProject(ctx context.Context, projectID uint64, ids []uint64) (int64, error)

	// Delete soft deletes a subtask
	Delete(ctx context.Context, id uint64) error

	// DeleteByProject soft deletes every subtask of a project
	DeleteByProject(ctx context.Context, projectID uint64) error

	// CountByStatus counts a project's subtasks per status
	CountByStatus(ctx context.Context, projectID uint64) (StatusCounts, error)

	// MaxOrder returns the highest order in use, 0 when there are no subtasks
	MaxOrder(ctx context.Context, projectID uint64) (int, error)

	// OrderTaken reports whether another subtask of the project uses order
	OrderTaken(ctx context.Context, projectID uint64, order int, excludeID uint64) (bool, error)
}

// SubtaskFilter holds filtering options for listing subtasks
type SubtaskFilter struct {
	Status *models.SubtaskStatus
	Phase  *models.Phase
}

// StatusCounts is the number of live subtasks of a project per status.
type StatusCounts struct {
	Total      int64
	Pending    int64
	InProgress int64
	Completed  int64
	Blocked    int64
}

// Store groups the repositories so they can run inside one transaction.
type Store interface {
	Projects() ProjectRepository
	Subtasks() SubtaskRepository

	// Transaction runs fn with a Store bound to a single database
	// transaction. It commits when fn returns nil.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
