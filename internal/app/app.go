package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lms-backend/internal/data/store"
	server "github.com/yungbote/lms-backend/internal/http"
	"github.com/yungbote/lms-backend/internal/observability"
	"github.com/yungbote/lms-backend/internal/platform/logger"
	"github.com/yungbote/lms-backend/internal/platform/storage"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Store    store.Store
	Services Services
	Router   *gin.Engine
	Metrics  *observability.Metrics

	driver       storage.Driver
	server       *server.Server
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if logMode == "prod" || logMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)
	return NewWithConfig(context.Background(), log, cfg)
}

// NewWithConfig builds the app from an explicit config.
func NewWithConfig(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: "lms-backend",
		Environment: cfg.Environment,
		Version:     cfg.Version,
		Endpoint:    cfg.OtelEndpoint,
		Headers:     observability.ParseHeaders(cfg.OtelHeaders),
		Insecure:    cfg.OtelInsecure,
		SampleRatio: cfg.OtelSampleRatio,
	})

	st, err := resolveStore(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	driver, err := resolveStorageDriver(ctx, log, cfg)
	if err != nil {
		closeStore(log, st)
		log.Sync()
		return nil, err
	}

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	serviceset := wireServices(log, cfg, st, driver)
	handlerset := wireHandlers(log, serviceset)
	middleware := wireMiddleware(log, serviceset)
	router := wireRouter(log, cfg, metrics, handlerset, middleware)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Store:        st,
		Services:     serviceset,
		Router:       router,
		Metrics:      metrics,
		driver:       driver,
		server:       &server.Server{Engine: router},
		otelShutdown: otelShutdown,
	}, nil
}

// Start has no background workers to launch; it reports the selected backends.
func (a *App) Start() {
	if a == nil {
		return
	}
	a.Log.Info("App started", "data_backend", a.Store.Backend(), "storage_enabled", a.driver != nil)
}

func (a *App) Run(addr string) error {
	if a == nil || a.server == nil {
		return errors.New("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", addr)
	return a.server.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.Log.Warn("HTTP shutdown failed", "error", err)
		}
	}
	if c, ok := a.driver.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.Log.Warn("Object storage close failed", "error", err)
		}
	}
	closeStore(a.Log, a.Store)
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

func closeStore(log *logger.Logger, st store.Store) {
	if c, ok := st.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warn("Data backend close failed", "error", err)
		}
	}
}
