package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/yukikurage/project-planner-api/internal/errors"
	"github.com/yukikurage/project-planner-api/internal/services"
)

// respondServiceError maps service errors to API errors. Anything it does not
// recognize is logged and reported as an internal error.
func respondServiceError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrSubtaskNotFound):
		apierrors.NotFound(c, capitalize(err.Error()))
	case errors.Is(err, services.ErrInvalidDateRange),
		errors.Is(err, services.ErrSubtaskOutOfWindow),
		errors.Is(err, services.ErrWindowExcludes):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeInvalidDates, capitalize(err.Error()))
	case errors.Is(err, services.ErrInvalidDependency),
		errors.Is(err, services.ErrDependencyCycle):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeDependency, capitalize(err.Error()))
	case errors.Is(err, services.ErrOrderTaken):
		apierrors.Conflict(c, capitalize(err.Error()))
	case errors.Is(err, services.ErrProgressDerived):
		apierrors.UnprocessableEntity(c, capitalize(err.Error()))
	case errors.Is(err, services.ErrNameRequired),
		errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrInvalidTimeline),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidPhase),
		errors.Is(err, services.ErrInvalidComplexity),
		errors.Is(err, services.ErrInvalidRiskLevel),
		errors.Is(err, services.ErrInvalidHours),
		errors.Is(err, services.ErrInvalidProgress),
		errors.Is(err, services.ErrInvalidOrder),
		errors.Is(err, services.ErrNoSubtaskIDs):
		apierrors.BadRequest(c, capitalize(err.Error()))
	default:
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		apierrors.InternalError(c, "")
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// optionalEnum converts an optional request string into an enum pointer.
func optionalEnum[T ~string](s *string) *T {
	if s == nil {
		return nil
	}
	v := T(*s)
	return &v
}
