package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/lms-backend/internal/platform/gcp"
	"github.com/yungbote/lms-backend/internal/platform/logger"
	"github.com/yungbote/lms-backend/internal/platform/oss"
	"github.com/yungbote/lms-backend/internal/platform/storage"
)

const storageModeOSS = "oss"

var (
	newGCSDriver = func(ctx context.Context, log *logger.Logger, cfg gcp.Config) (storage.Driver, error) {
		return gcp.NewDriver(ctx, log, cfg)
	}
	newOSSDriver = func(log *logger.Logger, cfg oss.Config) (storage.Driver, error) {
		return oss.NewDriver(log, cfg)
	}
)

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidEmulatorHost StorageProviderBootstrapErrorCode = "invalid_emulator_host"
	StorageProviderBootstrapErrorMissingConfig       StorageProviderBootstrapErrorCode = "missing_config"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code         StorageProviderBootstrapErrorCode
	Mode         string
	EmulatorHost string
	Cause        error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf(
		"object storage bootstrap failed (code=%s mode=%q emulator_host=%q): %v",
		e.Code,
		e.Mode,
		e.EmulatorHost,
		e.Cause,
	)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveStorageDriver returns a nil driver when no storage is configured at
// all; material uploads are then refused.
func resolveStorageDriver(ctx context.Context, log *logger.Logger, cfg Config) (storage.Driver, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.ObjectStorageMode))
	if mode == "" && strings.TrimSpace(cfg.MaterialBucketName) == "" && strings.TrimSpace(cfg.StorageEmulatorHost) == "" {
		log.Warn("Object storage not configured; pdf uploads are disabled")
		return nil, nil
	}

	if mode == storageModeOSS {
		log.Info("Selecting object storage provider", "mode", mode, "endpoint", cfg.OSSEndpoint)
		drv, err := newOSSDriver(log, oss.Config{
			Endpoint:        cfg.OSSEndpoint,
			AccessKeyID:     cfg.OSSAccessKeyID,
			AccessKeySecret: cfg.OSSAccessKeySecret,
			SecurityToken:   cfg.OSSSecurityToken,
			Bucket:          cfg.MaterialBucketName,
		})
		if err != nil {
			classified := classifyStorageProviderBootstrapError(gcp.Config{}, mode, err)
			logStorageBootstrapFailure(log, mode, "", classified)
			return nil, classified
		}
		return drv, nil
	}

	gcsCfg, err := gcp.ResolveConfig(mode, cfg.StorageEmulatorHost, cfg.MaterialBucketName)
	if err != nil {
		classified := classifyStorageProviderBootstrapError(gcsCfg, mode, err)
		logStorageBootstrapFailure(log, mode, cfg.StorageEmulatorHost, classified)
		return nil, classified
	}
	log.Info(
		"Selecting object storage provider",
		"mode", gcsCfg.Mode,
		"mode_source", gcsCfg.ModeSource(),
		"compatibility_fallback", gcsCfg.CompatibilityFallback,
		"emulator_host", gcsCfg.EmulatorHost,
	)
	drv, err := newGCSDriver(ctx, log, gcsCfg)
	if err != nil {
		classified := classifyStorageProviderBootstrapError(gcsCfg, string(gcsCfg.Mode), err)
		logStorageBootstrapFailure(log, string(gcsCfg.Mode), gcsCfg.EmulatorHost, classified)
		return nil, classified
	}
	return drv, nil
}

func logStorageBootstrapFailure(log *logger.Logger, mode, emulatorHost string, err error) {
	log.Error(
		"Object storage provider bootstrap failed",
		"mode", mode,
		"emulator_host", emulatorHost,
		"error_code", storageProviderBootstrapErrorCode(err),
		"error", err,
	)
}

func classifyStorageProviderBootstrapError(gcsCfg gcp.Config, mode string, err error) error {
	out := &StorageProviderBootstrapError{
		Code:         StorageProviderBootstrapErrorConnectFailed,
		Mode:         mode,
		EmulatorHost: gcsCfg.EmulatorHost,
		Cause:        err,
	}
	var cfgErr *gcp.ConfigError
	if errors.As(err, &cfgErr) {
		if cfgErr.EmulatorHost != "" {
			out.EmulatorHost = cfgErr.EmulatorHost
		}
		switch cfgErr.Code {
		case gcp.ConfigErrorInvalidMode:
			out.Code = StorageProviderBootstrapErrorInvalidMode
		case gcp.ConfigErrorMissingEmulatorHost:
			out.Code = StorageProviderBootstrapErrorMissingEmulatorHost
		case gcp.ConfigErrorInvalidEmulatorHost:
			out.Code = StorageProviderBootstrapErrorInvalidEmulatorHost
		case gcp.ConfigErrorMissingBucket:
			out.Code = StorageProviderBootstrapErrorMissingConfig
		}
		return out
	}
	var ossErr *oss.ConfigError
	if errors.As(err, &ossErr) {
		out.Code = StorageProviderBootstrapErrorMissingConfig
	}
	return out
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return StorageProviderBootstrapErrorConnectFailed
}
