package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/lms-backend/internal/data/db"
	"github.com/yungbote/lms-backend/internal/data/store"
	"github.com/yungbote/lms-backend/internal/data/store/gormstore"
	"github.com/yungbote/lms-backend/internal/data/store/memstore"
	"github.com/yungbote/lms-backend/internal/data/store/reststore"
	"github.com/yungbote/lms-backend/internal/platform/logger"
)

type StoreBootstrapErrorCode string

const (
	StoreBootstrapErrorInvalidBackend StoreBootstrapErrorCode = "invalid_backend"
	StoreBootstrapErrorMissingConfig  StoreBootstrapErrorCode = "missing_config"
	StoreBootstrapErrorConnectFailed  StoreBootstrapErrorCode = "connect_failed"
	StoreBootstrapErrorMigrateFailed  StoreBootstrapErrorCode = "migrate_failed"
)

type StoreBootstrapError struct {
	Code    StoreBootstrapErrorCode
	Backend string
	Cause   error
}

func (e *StoreBootstrapError) Error() string {
	if e == nil {
		return "data backend bootstrap failed"
	}
	return fmt.Sprintf("data backend bootstrap failed (code=%s backend=%q): %v", e.Code, e.Backend, e.Cause)
}

func (e *StoreBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

var (
	openPostgres = func(log *logger.Logger, cfg db.PostgresConfig) (*db.PostgresService, error) {
		return db.NewPostgresService(log, cfg)
	}
	newRestStore = reststore.New
)

// resolveStore picks the single data backend for the process lifetime.
func resolveStore(ctx context.Context, log *logger.Logger, cfg Config) (store.Store, error) {
	backend := store.Backend(strings.ToLower(strings.TrimSpace(cfg.DataBackend)))
	if backend == "" {
		backend = store.BackendGorm
	}
	if !store.IsSupportedBackend(backend) {
		err := &StoreBootstrapError{
			Code:    StoreBootstrapErrorInvalidBackend,
			Backend: string(backend),
			Cause:   fmt.Errorf("unsupported data backend %q (want gorm, postgrest or memory)", backend),
		}
		log.Error("Data backend selection failed", "backend", backend, "error_code", err.Code, "error", err)
		return nil, err
	}
	log.Info("Selecting data backend", "backend", backend)

	var (
		st  store.Store
		err error
	)
	switch backend {
	case store.BackendGorm:
		st, err = openGormStore(log, cfg)
	case store.BackendPostgREST:
		st, err = openRestStore(log, cfg)
	case store.BackendMemory:
		log.Warn("Using in-memory data backend; data is lost on restart")
		st = memstore.New(log)
	}
	if err != nil {
		log.Error("Data backend bootstrap failed", "backend", backend, "error_code", storeBootstrapErrorCode(err), "error", err)
		return nil, err
	}
	if err := st.Ping(ctx); err != nil {
		log.Warn("Data backend ping failed (continuing)", "backend", backend, "error", err)
	}
	return st, nil
}

func openGormStore(log *logger.Logger, cfg Config) (store.Store, error) {
	pg, err := openPostgres(log, cfg.Postgres)
	if err != nil {
		return nil, &StoreBootstrapError{Code: StoreBootstrapErrorConnectFailed, Backend: string(store.BackendGorm), Cause: err}
	}
	if cfg.AutoMigrate {
		if err := pg.AutoMigrateAll(); err != nil {
			return nil, &StoreBootstrapError{Code: StoreBootstrapErrorMigrateFailed, Backend: string(store.BackendGorm), Cause: err}
		}
	}
	return gormstore.New(pg.DB(), log), nil
}

func openRestStore(log *logger.Logger, cfg Config) (store.Store, error) {
	if strings.TrimSpace(cfg.PostgRESTURL) == "" {
		return nil, &StoreBootstrapError{
			Code:    StoreBootstrapErrorMissingConfig,
			Backend: string(store.BackendPostgREST),
			Cause:   errors.New("POSTGREST_URL is required"),
		}
	}
	st, err := newRestStore(reststore.Config{
		BaseURL: cfg.PostgRESTURL,
		APIKey:  cfg.PostgRESTAPIKey,
		Schema:  cfg.PostgRESTSchema,
	}, log)
	if err != nil {
		return nil, &StoreBootstrapError{Code: StoreBootstrapErrorConnectFailed, Backend: string(store.BackendPostgREST), Cause: err}
	}
	return st, nil
}

func storeBootstrapErrorCode(err error) StoreBootstrapErrorCode {
	var bootstrapErr *StoreBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return StoreBootstrapErrorConnectFailed
}
