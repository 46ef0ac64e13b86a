package dto

import (
	"time"

	"github.com/yukikurage/project-planner-api/internal/models"
)

// CreateSubtaskRequest is the body of POST /projects/:id/subtasks
type CreateSubtaskRequest struct {
	Title          string   `json:"title" binding:"required,max=255"`
	Description    string   `json:"description"`
	Order          *int     `json:"order" binding:"omitempty,min=1"`
	Priority       string   `json:"priority"`
	EstimatedHours *float64 `json:"estimated_hours" binding:"omitempty,gte=0.5"`
	Status         string   `json:"status"`
	Phase          string   `json:"phase"`
	Complexity     string   `json:"complexity"`
	RiskLevel      string   `json:"risk_level"`
	StartDate      *Date    `json:"start_date"`
	DueDate        *Date    `json:"due_date"`
	Dependencies   []uint64 `json:"dependencies"`
	Tags           []string `json:"tags"`
	Skills         []string `json:"skills"`
}

// UpdateSubtaskRequest is the body of PATCH /projects/:id/subtasks/:subtask_id
type UpdateSubtaskRequest struct {
	Title          *string   `json:"title" binding:"omitempty,max=255"`
	Description    *string   `json:"description"`
	Order          *int      `json:"order" binding:"omitempty,min=1"`
	Priority       *string   `json:"priority"`
	EstimatedHours *float64  `json:"estimated_hours" binding:"omitempty,gte=0.5"`
	Status         *string   `json:"status"`
	Phase          *string   `json:"phase"`
	Complexity     *string   `json:"complexity"`
	RiskLevel      *string   `json:"risk_level"`
	StartDate      *Date     `json:"start_date"`
	DueDate        *Date     `json:"due_date"`
	Dependencies   *[]uint64 `json:"dependencies"`
	Tags           *[]string `json:"tags"`
	Skills         *[]string `json:"skills"`
}

// BulkStatusRequest is the body of PATCH /projects/:id/subtasks/bulk
type BulkStatusRequest struct {
	SubtaskIDs []uint64 `json:"subtask_ids" binding:"required,min=1"`
	Status     string   `json:"status" binding:"required"`
}

// BulkStatusResponse reports the matched and changed subtasks and the new
// project progress
type BulkStatusResponse struct {
	Updated  int64                `json:"updated"`
	Changed  int64                `json:"changed"`
	Progress int                  `json:"progress"`
	Status   models.ProjectStatus `json:"status"`
}

// SubtaskDTO represents a subtask in API responses
type SubtaskDTO struct {
	ID             uint64               `json:"id"`
	ProjectID      uint64               `json:"project_id"`
	Title          string               `json:"title"`
	Description    string               `json:"description"`
	Order          int                  `json:"order"`
	Priority       models.Priority      `json:"priority"`
	EstimatedHours float64              `json:"estimated_hours"`
	Status         models.SubtaskStatus `json:"status"`
	Phase          models.Phase         `json:"phase"`
	Complexity     models.Complexity    `json:"complexity"`
	RiskLevel      models.RiskLevel     `json:"risk_level"`
	StartDate      time.Time            `json:"start_date"`
	DueDate        time.Time            `json:"due_date"`
	CompletedDate  *time.Time           `json:"completed_date"`
	Dependencies   []uint64             `json:"dependencies"`
	Tags           []string             `json:"tags"`
	Skills         []string             `json:"skills"`
	AIGenerated    bool                 `json:"ai_generated"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// ToSubtaskDTO converts a Subtask model to SubtaskDTO
func ToSubtaskDTO(subtask models.Subtask) SubtaskDTO {
	return SubtaskDTO{
		ID:             subtask.ID,
		ProjectID:      subtask.ProjectID,
		Title:          subtask.Title,
		Description:    subtask.Description,
		Order:          subtask.Order,
		Priority:       subtask.Priority,
		EstimatedHours: subtask.EstimatedHours,
		Status:         subtask.Status,
		Phase:          subtask.Phase,
		Complexity:     subtask.Complexity,
		RiskLevel:      subtask.RiskLevel,
		StartDate:      subtask.StartDate,
		DueDate:        subtask.DueDate,
		CompletedDate:  subtask.CompletedDate,
		Dependencies:   orEmpty([]uint64(subtask.Dependencies)),
		Tags:           orEmpty([]string(subtask.Tags)),
		Skills:         orEmpty([]string(subtask.Skills)),
		AIGenerated:    subtask.AIGenerated,
		CreatedAt:      subtask.CreatedAt,
		UpdatedAt:      subtask.UpdatedAt,
	}
}

// ToSubtaskDTOs converts a list of subtasks
func ToSubtaskDTOs(subtasks []models.Subtask) []SubtaskDTO {
	items := make([]SubtaskDTO, len(subtasks))
	for i, subtask := range subtasks {
		items[i] = ToSubtaskDTO(subtask)
	}
	return items
}

func orEmpty[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
