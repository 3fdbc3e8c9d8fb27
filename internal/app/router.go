package app

import (
	"github.com/gin-gonic/gin"

	server "github.com/yungbote/lms-backend/internal/http"
	"github.com/yungbote/lms-backend/internal/observability"
	"github.com/yungbote/lms-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	serviceName := ""
	if cfg.OtelEnabled {
		serviceName = "lms-backend"
	}
	return server.NewRouter(server.RouterConfig{
		Log:               log,
		ServiceName:       serviceName,
		CORSOrigins:       cfg.CORSOrigins,
		Metrics:           metrics,
		AuthMiddleware:    middleware.Auth,
		HealthHandler:     handlers.Health,
		AuthHandler:       handlers.Auth,
		CourseHandler:     handlers.Course,
		MaterialHandler:   handlers.Material,
		EnrollmentHandler: handlers.Enrollment,
		RatingHandler:     handlers.Rating,
		CategoryHandler:   handlers.Category,
		UserHandler:       handlers.User,
	})
}
