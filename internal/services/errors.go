package services

import "errors"

var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrSubtaskNotFound    = errors.New("subtask not found")
	ErrNameRequired       = errors.New("name is required")
	ErrTitleRequired      = errors.New("title is required")
	ErrInvalidDateRange   = errors.New("start date must be before due date")
	ErrInvalidTimeline    = errors.New("timeline must be a positive number of days")
	ErrInvalidPriority    = errors.New("priority must be LOW, MEDIUM or HIGH")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidPhase       = errors.New("invalid phase")
	ErrInvalidComplexity  = errors.New("complexity must be LOW, MEDIUM or HIGH")
	ErrInvalidRiskLevel   = errors.New("risk level must be LOW, MEDIUM or HIGH")
	ErrInvalidHours       = errors.New("estimated hours must be at least 0.5")
	ErrProgressDerived    = errors.New("progress and status are derived from subtasks and cannot be set directly")
	ErrInvalidProgress    = errors.New("progress must be between 0 and 100")
	ErrInvalidDependency  = errors.New("dependencies must reference other subtasks of the same project")
	ErrDependencyCycle    = errors.New("dependencies would form a cycle")
	ErrOrderTaken         = errors.New("order is already used by another subtask")
	ErrInvalidOrder       = errors.New("order must be a positive integer")
	ErrSubtaskOutOfWindow = errors.New("subtask dates must lie within the project window")
	ErrWindowExcludes     = errors.New("new project window would exclude existing subtasks")
	ErrNoSubtaskIDs       = errors.New("at least one subtask ID is required")
)
