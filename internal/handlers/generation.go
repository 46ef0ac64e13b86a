package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/project-planner-api/internal/dto"
	apierrors "github.com/yukikurage/project-planner-api/internal/errors"
	"github.com/yukikurage/project-planner-api/internal/middleware"
	"github.com/yukikurage/project-planner-api/internal/services"
)

// GenerationHandler exposes subtask generation and the pattern cache.
type GenerationHandler struct {
	generation *services.GenerationService
	logger     *zap.Logger
}

func NewGenerationHandler(generation *services.GenerationService, logger *zap.Logger) *GenerationHandler {
	return &GenerationHandler{generation: generation, logger: logger}
}

// GenerateSubtasks produces subtasks for the project. Generation problems
// never fail the request: the response then carries the fallback set and
// fallback_used is true.
func (h *GenerationHandler) GenerateSubtasks(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "Project not found in context")
		return
	}

	var req dto.GenerateRequest
	// An empty body means regenerate=false.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.generation.GenerateSubtasks(c.Request.Context(), project, req.Regenerate)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	status := http.StatusCreated
	if result.Metadata.Existing {
		status = http.StatusOK
	}
	c.JSON(status, dto.ToGenerationResponse(result))
}

// ClearCache drops every cached generation pattern.
func (h *GenerationHandler) ClearCache(c *gin.Context) {
	removed := h.generation.ClearCache()
	c.JSON(http.StatusOK, gin.H{
		"message": "Pattern cache cleared",
		"removed": removed,
	})
}
