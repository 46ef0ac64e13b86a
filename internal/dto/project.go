package dto

import (
	"time"

	"github.com/yukikurage/project-planner-api/internal/models"
	"github.com/yukikurage/project-planner-api/internal/utils"
)

// CreateProjectRequest is the body of POST /projects
type CreateProjectRequest struct {
	Name             string `json:"name" binding:"required,max=255"`
	Description      string `json:"description"`
	Timeline         int    `json:"timeline" binding:"omitempty,min=1"`
	StartDate        *Date  `json:"start_date"`
	DueDate          *Date  `json:"due_date"`
	Priority         string `json:"priority"`
	Category         string `json:"category" binding:"max=100"`
	GenerateSubtasks bool   `json:"generate_subtasks"`
}

// UpdateProjectRequest is the body of PATCH /projects/:id. Absent fields are
// left unchanged.
type UpdateProjectRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=255"`
	Description *string `json:"description"`
	Timeline    *int    `json:"timeline" binding:"omitempty,min=1"`
	StartDate   *Date   `json:"start_date"`
	DueDate     *Date   `json:"due_date"`
	Priority    *string `json:"priority"`
	Category    *string `json:"category" binding:"omitempty,max=100"`
	Progress    *int    `json:"progress" binding:"omitempty,min=0,max=100"`
	Status      *string `json:"status"`
}

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          uint64               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Timeline    int                  `json:"timeline"`
	StartDate   time.Time            `json:"start_date"`
	DueDate     time.Time            `json:"due_date"`
	Priority    models.Priority      `json:"priority"`
	Category    string               `json:"category"`
	Progress    int                  `json:"progress"`
	Status      models.ProjectStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Generation  *GenerationResponse  `json:"generation,omitempty"`
}

// ProjectListResponse represents a paginated list of projects
type ProjectListResponse struct {
	Projects   []ProjectDTO             `json:"projects"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// ToProjectDTO converts a Project model to ProjectDTO
func ToProjectDTO(project models.Project) ProjectDTO {
	return ProjectDTO{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		Timeline:    project.Timeline,
		StartDate:   project.StartDate,
		DueDate:     project.DueDate,
		Priority:    project.Priority,
		Category:    project.Category,
		Progress:    project.Progress,
		Status:      project.Status,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
}

// ToProjectListResponse converts a page of projects
func ToProjectListResponse(projects []models.Project, page utils.PaginationParams, total int64) ProjectListResponse {
	items := make([]ProjectDTO, len(projects))
	for i, project := range projects {
		items[i] = ToProjectDTO(project)
	}
	return ProjectListResponse{
		Projects:   items,
		Pagination: page.Response(total),
	}
}
