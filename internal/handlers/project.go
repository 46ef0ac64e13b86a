package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/project-planner-api/internal/dto"
	apierrors "github.com/yukikurage/project-planner-api/internal/errors"
	"github.com/yukikurage/project-planner-api/internal/middleware"
	"github.com/yukikurage/project-planner-api/internal/models"
	"github.com/yukikurage/project-planner-api/internal/services"
	"github.com/yukikurage/project-planner-api/internal/utils"
)

// ProjectHandler serves the project endpoints.
type ProjectHandler struct {
	projects   *services.ProjectService
	generation *services.GenerationService
	logger     *zap.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projects *services.ProjectService, generation *services.GenerationService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		projects:   projects,
		generation: generation,
		logger:     logger,
	}
}

// CreateProject creates a project owned by the caller and, when asked,
// generates its subtasks right away.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	project, err := h.projects.CreateProject(ctx, services.CreateProjectInput{
		OwnerID:     userID,
		Name:        req.Name,
		Description: req.Description,
		Timeline:    req.Timeline,
		StartDate:   req.StartDate.TimePtr(),
		DueDate:     req.DueDate.TimePtr(),
		Priority:    models.Priority(req.Priority),
		Category:    req.Category,
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	if !req.GenerateSubtasks {
		c.JSON(http.StatusCreated, dto.ToProjectDTO(*project))
		return
	}

	result, err := h.generation.GenerateSubtasks(ctx, project, false)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	// Generation recalculated progress; reload so the response matches storage.
	project, err = h.projects.GetProject(ctx, userID, project.ID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	response := dto.ToProjectDTO(*project)
	generated := dto.ToGenerationResponse(result)
	response.Generation = &generated
	c.JSON(http.StatusCreated, response)
}

// ListProjects returns the caller's projects, optionally filtered by status,
// priority and category.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	input := services.ListProjectsInput{
		OwnerID:  userID,
		Category: strings.TrimSpace(c.Query("category")),
		Page:     utils.GetPaginationParams(c),
	}
	if s := c.Query("status"); s != "" {
		status, ok := models.ParseProjectStatus(s)
		if !ok {
			apierrors.BadRequest(c, "Invalid status filter")
			return
		}
		input.Status = &status
	}
	if p := c.Query("priority"); p != "" {
		priority, ok := models.ParsePriority(p)
		if !ok {
			apierrors.BadRequest(c, "Invalid priority filter")
			return
		}
		input.Priority = &priority
	}

	projects, total, err := h.projects.ListProjects(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectListResponse(projects, input.Page, total))
}

// GetProject returns the project loaded by RequireProjectAccess.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "Project not found in context")
		return
	}
	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// UpdateProject applies a partial update to the project.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "Project not found in context")
		return
	}

	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.projects.UpdateProject(c.Request.Context(), project.ID, services.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Timeline:    req.Timeline,
		StartDate:   req.StartDate.TimePtr(),
		DueDate:     req.DueDate.TimePtr(),
		Priority:    optionalEnum[models.Priority](req.Priority),
		Category:    req.Category,
		Progress:    req.Progress,
		Status:      optionalEnum[models.ProjectStatus](req.Status),
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*updated))
}

// DeleteProject deletes the project and its subtasks.
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "Project not found in context")
		return
	}

	if err := h.projects.DeleteProject(c.Request.Context(), project.ID); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}
