package middleware

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/project-planner-api/internal/constants"
	apierrors "github.com/yukikurage/project-planner-api/internal/errors"
	"github.com/yukikurage/project-planner-api/internal/models"
	"github.com/yukikurage/project-planner-api/internal/services"
)

// ProjectFinder loads a project on behalf of its owner
type ProjectFinder interface {
	GetProject(ctx context.Context, ownerID, projectID uint64) (*models.Project, error)
}

// RequireProjectAccess loads the project named by the :id parameter and
// stores it in the context. Projects of other owners are reported as not
// found so their existence is not leaked.
func RequireProjectAccess(projects ProjectFinder, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid project ID")
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			return
		}

		project, err := projects.GetProject(c.Request.Context(), userID, projectID)
		if err != nil {
			if errors.Is(err, services.ErrProjectNotFound) {
				apierrors.NotFound(c, "Project not found")
				return
			}
			logger.Error("failed to load project", zap.Uint64("project_id", projectID), zap.Error(err))
			apierrors.InternalError(c, "")
			return
		}

		c.Set(constants.ContextKeyProject, project)
		c.Next()
	}
}

// GetProject retrieves the project loaded by RequireProjectAccess
func GetProject(c *gin.Context) (*models.Project, bool) {
	value, exists := c.Get(constants.ContextKeyProject)
	if !exists {
		return nil, false
	}
	project, ok := value.(*models.Project)
	return project, ok && project != nil
}
