package app

import (
	"github.com/yungbote/lms-backend/internal/data/store"
	"github.com/yungbote/lms-backend/internal/platform/logger"
	"github.com/yungbote/lms-backend/internal/platform/storage"
	"github.com/yungbote/lms-backend/internal/services"
	"github.com/yungbote/lms-backend/internal/services/access"
)

type Services struct {
	Access      access.Engine
	Auth        services.AuthService
	User        services.UserService
	Category    services.CategoryService
	Course      services.CourseService
	Material    services.MaterialService
	Enrollment  services.EnrollmentService
	Progress    services.ProgressService
	Rating      services.RatingService
	ObjectStore services.ObjectStore
}

func wireServices(log *logger.Logger, cfg Config, st store.Store, driver storage.Driver) Services {
	log.Info("Wiring services...")

	// a nil *Gateway inside the interface would not compare equal to nil
	var objects services.ObjectStore
	if driver != nil {
		objects = storage.NewGateway(log, driver, storage.Config{
			MaxBytes:            cfg.UploadMaxBytes,
			AllowedContentTypes: cfg.UploadAllowedTypes,
			PublicBaseURL:       cfg.PublicBaseURL,
			SignedURLTTL:        cfg.SignedURLTTL,
			DeleteConcurrency:   cfg.BulkConcurrency,
		})
	}

	engine := access.NewEngine(log, st, cfg.AccessConcurrency)
	categories := services.NewCategoryService(log, st, engine, cfg.BulkConcurrency)
	enrollments := services.NewEnrollmentService(log, st, engine)
	return Services{
		Access:      engine,
		Auth:        services.NewAuthService(log, st, cfg.JWTSecretKey, cfg.AccessTokenTTL),
		User:        services.NewUserService(log, st, categories),
		Category:    categories,
		Course:      services.NewCourseService(log, st, engine, objects),
		Material:    services.NewMaterialService(log, st, engine, objects),
		Enrollment:  enrollments,
		Progress:    services.NewProgressService(log, st, engine),
		Rating:      services.NewRatingService(log, st, engine, enrollments),
		ObjectStore: objects,
	}
}
