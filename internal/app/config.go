package app

import (
	"time"

	"github.com/yungbote/lms-backend/internal/data/db"
	"github.com/yungbote/lms-backend/internal/platform/envutil"
	"github.com/yungbote/lms-backend/internal/platform/logger"
)

type Config struct {
	Port           string
	Environment    string
	Version        string
	JWTSecretKey   string
	AccessTokenTTL time.Duration

	DataBackend     string
	Postgres        db.PostgresConfig
	AutoMigrate     bool
	PostgRESTURL    string
	PostgRESTAPIKey string
	PostgRESTSchema string

	ObjectStorageMode   string
	StorageEmulatorHost string
	MaterialBucketName  string
	PublicBaseURL       string
	OSSEndpoint         string
	OSSAccessKeyID      string
	OSSAccessKeySecret  string
	OSSSecurityToken    string
	UploadMaxBytes      int64
	UploadAllowedTypes  []string
	SignedURLTTL        time.Duration

	AccessConcurrency int
	BulkConcurrency   int
	CORSOrigins       []string
	MetricsEnabled    bool

	OtelEnabled     bool
	OtelEndpoint    string
	OtelHeaders     string
	OtelInsecure    bool
	OtelSampleRatio float64
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:           envutil.String("PORT", "8080"),
		Environment:    envutil.String("APP_ENV", "development"),
		Version:        envutil.String("APP_VERSION", "dev"),
		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", ""),
		AccessTokenTTL: envutil.Seconds("ACCESS_TOKEN_TTL", time.Hour),

		DataBackend: envutil.String("DATA_BACKEND", "gorm"),
		Postgres: db.PostgresConfig{
			Host:     envutil.String("POSTGRES_HOST", "localhost"),
			Port:     envutil.String("POSTGRES_PORT", "5432"),
			User:     envutil.String("POSTGRES_USER", "postgres"),
			Password: envutil.String("POSTGRES_PASSWORD", ""),
			Name:     envutil.String("POSTGRES_NAME", "lms"),
			SSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
		},
		AutoMigrate:     envutil.Bool("POSTGRES_AUTO_MIGRATE", true),
		PostgRESTURL:    envutil.String("POSTGREST_URL", ""),
		PostgRESTAPIKey: envutil.String("POSTGREST_API_KEY", ""),
		PostgRESTSchema: envutil.String("POSTGREST_SCHEMA", ""),

		ObjectStorageMode:   envutil.String("OBJECT_STORAGE_MODE", ""),
		StorageEmulatorHost: envutil.String("STORAGE_EMULATOR_HOST", ""),
		MaterialBucketName:  envutil.String("MATERIAL_BUCKET_NAME", ""),
		PublicBaseURL:       envutil.String("OBJECT_STORAGE_PUBLIC_BASE_URL", ""),
		OSSEndpoint:         envutil.String("OSS_ENDPOINT", ""),
		OSSAccessKeyID:      envutil.String("OSS_ACCESS_KEY_ID", ""),
		OSSAccessKeySecret:  envutil.String("OSS_ACCESS_KEY_SECRET", ""),
		OSSSecurityToken:    envutil.String("OSS_SECURITY_TOKEN", ""),
		UploadMaxBytes:      envutil.Int64("UPLOAD_MAX_BYTES", 20<<20),
		UploadAllowedTypes:  envutil.List("UPLOAD_ALLOWED_CONTENT_TYPES", []string{"application/pdf"}),
		SignedURLTTL:        envutil.Seconds("SIGNED_URL_TTL", 15*time.Minute),

		AccessConcurrency: envutil.Int("ACCESS_CONCURRENCY", 8),
		BulkConcurrency:   envutil.Int("BULK_CONCURRENCY", 8),
		CORSOrigins:       envutil.List("CORS_ALLOWED_ORIGINS", nil),
		MetricsEnabled:    envutil.Bool("METRICS_ENABLED", true),

		OtelEnabled:     envutil.Bool("OTEL_ENABLED", false),
		OtelEndpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OtelHeaders:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", ""),
		OtelInsecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		OtelSampleRatio: float64(envutil.Int("OTEL_SAMPLER_PERCENT", 100)) / 100,
	}
	if cfg.JWTSecretKey == "" {
		cfg.JWTSecretKey = "defaultsecret"
		log.Warn("JWT_SECRET_KEY not set, using an insecure development secret")
	}
	return cfg
}
