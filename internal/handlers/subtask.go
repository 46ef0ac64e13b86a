package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/project-planner-api/internal/dto"
	apierrors "github.com/yukikurage/project-planner-api/internal/errors"
	"github.com/yukikurage/project-planner-api/internal/middleware"
	"github.com/yukikurage/project-planner-api/internal/models"
	"github.com/yukikurage/project-planner-api/internal/repository"
	"github.com/yukikurage/project-planner-api/internal/services"
)

// SubtaskHandler serves the subtask endpoints of a project. Every route runs
// behind RequireProjectAccess.
type SubtaskHandler struct {
	subtasks *services.SubtaskService
	logger   *zap.Logger
}

func NewSubtaskHandler(subtasks *services.SubtaskService, logger *zap.Logger) *SubtaskHandler {
	return &SubtaskHandler{subtasks: subtasks, logger: logger}
}

// ListSubtasks returns the project's subtasks in order
func (h *SubtaskHandler) ListSubtasks(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "Project not found in context")
		return
	}

	var filter repository.SubtaskFilter
	if s := c.Query("status"); s != "" {
		status, ok := models.ParseSubtaskStatus(s)
		if !ok {
			apierrors.BadRequest(c, "Invalid status filter")
			return
		}
		filter.Status = &status
	}
	if p := c.Query("phase"); p != "" {
		phase, ok := models.ParsePhase(p)
		if !ok {
			apierrors.BadRequest(c, "Invalid phase filter")
			return
		}
		filter.Phase = &phase
	}

	subtasks, err := h.subtasks.ListSubtasks(c.Request.Context(), project.ID, filter)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subtasks": dto.ToSubtaskDTOs(subtasks)})
}

// CreateSubtask adds a manually written subtask
func (h *SubtaskHandler) CreateSubtask(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "Project not found in context")
		return
	}

	var req dto.CreateSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	subtask, err := h.subtasks.CreateSubtask(c.Request.Context(), project, services.CreateSubtaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Order:          req.Order,
		Priority:       models.Priority(req.Priority),
		EstimatedHours: req.EstimatedHours,
		Status:         models.SubtaskStatus(req.Status),
		Phase:          models.Phase(req.Phase),
		Complexity:     models.Complexity(req.Complexity),
		RiskLevel:      models.RiskLevel(req.RiskLevel),
		StartDate:      req.StartDate.TimePtr(),
		DueDate:        req.DueDate.TimePtr(),
		Dependencies:   req.Dependencies,
		Tags:           req.Tags,
		Skills:         req.Skills,
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToSubtaskDTO(*subtask))
}

// UpdateSubtask applies a partial update to one subtask
func (h *SubtaskHandler) UpdateSubtask(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "Project not found in context")
		return
	}
	subtaskID, ok := subtaskIDParam(c)
	if !ok {
		return
	}

	var req dto.UpdateSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	subtask, err := h.subtasks.UpdateSubtask(c.Request.Context(), project, subtaskID, services.UpdateSubtaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Order:          req.Order,
		Priority:       optionalEnum[models.Priority](req.Priority),
		EstimatedHours: req.EstimatedHours,
		Status:         optionalEnum[models.SubtaskStatus](req.Status),
		Phase:          optionalEnum[models.Phase](req.Phase),
		Complexity:     optionalEnum[models.Complexity](req.Complexity),
		RiskLevel:      optionalEnum[models.RiskLevel](req.RiskLevel),
		StartDate:      req.StartDate.TimePtr(),
		DueDate:        req.DueDate.TimePtr(),
		Dependencies:   req.Dependencies,
		Tags:           req.Tags,
		Skills:         req.Skills,
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToSubtaskDTO(*subtask))
}

// BulkUpdateStatus moves several subtasks to one status
func (h *SubtaskHandler) BulkUpdateStatus(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "Project not found in context")
		return
	}

	var req dto.BulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.subtasks.BulkUpdateStatus(c.Request.Context(), project, req.SubtaskIDs, models.SubtaskStatus(req.Status))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.BulkStatusResponse{
		Updated:  result.Updated,
		Changed:  result.Changed,
		Progress: result.Progress,
		Status:   result.Status,
	})
}

// DeleteSubtask deletes one subtask
func (h *SubtaskHandler) DeleteSubtask(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "Project not found in context")
		return
	}
	subtaskID, ok := subtaskIDParam(c)
	if !ok {
		return
	}

	if err := h.subtasks.DeleteSubtask(c.Request.Context(), project, subtaskID); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Subtask deleted successfully"})
}

func subtaskIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("subtask_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid subtask ID")
		return 0, false
	}
	return id, true
}
