package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/project-planner-api/internal/middleware"
	"github.com/yukikurage/project-planner-api/internal/services"
)

// Services is everything the HTTP layer calls into.
type Services struct {
	Projects   *services.ProjectService
	Subtasks   *services.SubtaskService
	Generation *services.GenerationService
}

// RegisterRoutes mounts the health check and the session protected API on r.
// Session middleware must already be installed.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, svc Services, logger *zap.Logger) {
	projectHandler := NewProjectHandler(svc.Projects, svc.Generation, logger)
	subtaskHandler := NewSubtaskHandler(svc.Subtasks, logger)
	generationHandler := NewGenerationHandler(svc.Generation, logger)

	r.GET("/health", Health(db))

	api := r.Group("/api")
	api.Use(middleware.RequireAuth())
	{
		projects := api.Group("/projects")
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.ListProjects)

			project := projects.Group("/:id")
			project.Use(middleware.RequireProjectAccess(svc.Projects, logger))
			{
				project.GET("", projectHandler.GetProject)
				project.PATCH("", projectHandler.UpdateProject)
				project.DELETE("", projectHandler.DeleteProject)
				project.POST("/generate", generationHandler.GenerateSubtasks)

				project.GET("/subtasks", subtaskHandler.ListSubtasks)
				project.POST("/subtasks", subtaskHandler.CreateSubtask)
				project.PATCH("/subtasks/bulk", subtaskHandler.BulkUpdateStatus)
				project.PATCH("/subtasks/:subtask_id", subtaskHandler.UpdateSubtask)
				project.DELETE("/subtasks/:subtask_id", subtaskHandler.DeleteSubtask)
			}
		}

		api.DELETE("/generation/cache", generationHandler.ClearCache)
	}
}
