package app

import (
	"github.com/yungbote/lms-backend/internal/http/handlers"
	"github.com/yungbote/lms-backend/internal/platform/logger"
)

type Handlers struct {
	Health     *handlers.HealthHandler
	Auth       *handlers.AuthHandler
	Course     *handlers.CourseHandler
	Material   *handlers.MaterialHandler
	Enrollment *handlers.EnrollmentHandler
	Rating     *handlers.RatingHandler
	Category   *handlers.CategoryHandler
	User       *handlers.UserHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     handlers.NewHealthHandler(),
		Auth:       handlers.NewAuthHandler(services.Auth, services.User),
		Course:     handlers.NewCourseHandler(services.Course, services.Category),
		Material:   handlers.NewMaterialHandler(services.Material),
		Enrollment: handlers.NewEnrollmentHandler(services.Enrollment, services.Progress),
		Rating:     handlers.NewRatingHandler(services.Rating),
		Category:   handlers.NewCategoryHandler(services.Category),
		User:       handlers.NewUserHandler(services.User, services.Category),
	}
}
