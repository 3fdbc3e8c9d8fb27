package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	types "github.com/yungbote/lms-backend/internal/domain"
	httpH "github.com/yungbote/lms-backend/internal/http/handlers"
	httpMW "github.com/yungbote/lms-backend/internal/http/middleware"
	"github.com/yungbote/lms-backend/internal/observability"
	"github.com/yungbote/lms-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    []string
	Metrics        *observability.Metrics
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler     *httpH.HealthHandler
	AuthHandler       *httpH.AuthHandler
	CourseHandler     *httpH.CourseHandler
	MaterialHandler   *httpH.MaterialHandler
	EnrollmentHandler *httpH.EnrollmentHandler
	RatingHandler     *httpH.RatingHandler
	CategoryHandler   *httpH.CategoryHandler
	UserHandler       *httpH.UserHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	api := r.Group("/api")
	if cfg.AuthHandler != nil {
		api.POST("/login", cfg.AuthHandler.Login)
	}

	protected := api.Group("/")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}
	staff := httpMW.RequireRoles(types.RoleAdmin, types.RoleTeacher)
	admin := httpMW.RequireRoles(types.RoleAdmin)

	if cfg.AuthHandler != nil {
		protected.GET("/me", cfg.AuthHandler.Me)
	}

	if h := cfg.CourseHandler; h != nil {
		protected.GET("/courses", h.List)
		protected.POST("/courses", staff, h.Create)
		protected.GET("/courses/:id", h.Get)
		protected.PUT("/courses/:id", staff, h.Update)
		protected.DELETE("/courses/:id", staff, h.Delete)
		protected.GET("/courses/:id/participants", staff, h.Participants)
		protected.PUT("/courses/:id/categories", staff, h.SetCategories)
	}

	if h := cfg.MaterialHandler; h != nil {
		protected.GET("/courses/:id/materials", h.ListForCourse)
		protected.POST("/courses/:id/materials", staff, h.Create)
		protected.GET("/materials/:id", h.Get)
		protected.PUT("/materials/:id", staff, h.Update)
		protected.DELETE("/materials/:id", staff, h.Delete)
		protected.GET("/materials/:id/file", h.Download)
	}

	if h := cfg.EnrollmentHandler; h != nil {
		protected.POST("/courses/:id/enroll", h.Enroll)
		protected.DELETE("/courses/:id/enroll", h.Unenroll)
		protected.GET("/courses/:id/progress", h.CourseProgress)
		protected.POST("/materials/:id/progress", h.MarkProgress)
		protected.GET("/enrollments", h.Mine)
	}

	if h := cfg.RatingHandler; h != nil {
		protected.GET("/courses/:id/ratings", h.List)
		protected.POST("/courses/:id/ratings", h.Rate)
	}

	if h := cfg.CategoryHandler; h != nil {
		protected.GET("/categories", h.List)
		protected.POST("/categories", admin, h.Create)
		protected.PUT("/categories/:id", admin, h.Update)
		protected.DELETE("/categories/:id", admin, h.Delete)
		protected.POST("/categories/:id/users", admin, h.AssignUsers)
		protected.DELETE("/categories/:id/users", admin, h.UnassignUsers)
	}

	if h := cfg.UserHandler; h != nil {
		users := protected.Group("/admin/users", admin)
		users.GET("", h.List)
		users.POST("", h.Create)
		users.DELETE("", h.BulkDelete)
		users.GET("/:id", h.Get)
		users.PUT("/:id", h.Update)
		users.DELETE("/:id", h.Delete)
		users.PUT("/:id/categories", h.SetCategories)
	}

	return r
}
