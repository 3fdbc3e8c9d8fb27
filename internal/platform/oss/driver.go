// Package oss stores material files in an Aliyun OSS bucket.
package oss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	alioss "github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/yungbote/lms-backend/internal/platform/logger"
)

const listPageSize = 1000

type Config struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	SecurityToken   string
	Bucket          string
}

func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Endpoint) == "" {
		missing = append(missing, "OSS_ENDPOINT")
	}
	if strings.TrimSpace(c.AccessKeyID) == "" {
		missing = append(missing, "OSS_ACCESS_KEY_ID")
	}
	if strings.TrimSpace(c.AccessKeySecret) == "" {
		missing = append(missing, "OSS_ACCESS_KEY_SECRET")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		missing = append(missing, "MATERIAL_BUCKET_NAME")
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

// ConfigError lists the environment settings the driver could not start without.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("oss driver: missing %s", strings.Join(e.Missing, ", "))
}

// endpointHost strips any scheme so the endpoint can be used as a host suffix.
func (c Config) endpointHost() string {
	end := strings.TrimSpace(c.Endpoint)
	end = strings.TrimPrefix(end, "https://")
	end = strings.TrimPrefix(end, "http://")
	return strings.TrimRight(end, "/")
}

type Driver struct {
	log    *logger.Logger
	bucket *alioss.Bucket
	cfg    Config
}

func NewDriver(log *logger.Logger, cfg Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var opts []alioss.ClientOption
	if cfg.SecurityToken != "" {
		opts = append(opts, alioss.SecurityToken(cfg.SecurityToken))
	}
	client, err := alioss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret, opts...)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}
	bkt, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("client.Bucket: %w", err)
	}
	driverLog := log.With("service", "OSSDriver")
	driverLog.Info("Object storage initialized", "mode", "oss", "endpoint", cfg.endpointHost(), "bucket", cfg.Bucket)
	return &Driver{log: driverLog, bucket: bkt, cfg: cfg}, nil
}

func (d *Driver) Name() string { return "oss" }

func (d *Driver) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) error {
	opts := []alioss.Option{alioss.WithContext(ctx)}
	if contentType != "" {
		opts = append(opts, alioss.ContentType(contentType))
	}
	if err := d.bucket.PutObject(key, r, opts...); err != nil {
		return fmt.Errorf("oss put %q: %w", key, err)
	}
	return nil
}

func (d *Driver) Delete(ctx context.Context, key string) error {
	if err := d.bucket.DeleteObject(key, alioss.WithContext(ctx)); err != nil && !isNotFound(err) {
		return fmt.Errorf("oss delete %q: %w", key, err)
	}
	return nil
}

// DeletePrefix pages through the listing and removes each page in one batch.
func (d *Driver) DeletePrefix(ctx context.Context, prefix string) error {
	marker := alioss.Marker("")
	for {
		lor, err := d.bucket.ListObjects(alioss.Prefix(prefix), marker, alioss.MaxKeys(listPageSize), alioss.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("oss list %q: %w", prefix, err)
		}
		keys := make([]string, 0, len(lor.Objects))
		for _, obj := range lor.Objects {
			if obj.Key != "" {
				keys = append(keys, obj.Key)
			}
		}
		if len(keys) > 0 {
			if _, err := d.bucket.DeleteObjects(keys, alioss.DeleteObjectsQuiet(true), alioss.WithContext(ctx)); err != nil {
				return fmt.Errorf("oss batch delete under %q: %w", prefix, err)
			}
		}
		if !lor.IsTruncated {
			return nil
		}
		marker = alioss.Marker(lor.NextMarker)
	}
}

func (d *Driver) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	secs := int64(ttl / time.Second)
	if secs <= 0 {
		secs = 60
	}
	return d.bucket.SignURL(key, alioss.HTTPGet, secs)
}

func (d *Driver) BaseURL() string {
	return fmt.Sprintf("https://%s.%s", d.cfg.Bucket, d.cfg.endpointHost())
}

func (d *Driver) ObjectURL(key string) string {
	return d.BaseURL() + "/" + strings.TrimLeft(key, "/")
}

// KeyFromURL accepts virtual-host URLs for this bucket, signed or not.
func (d *Driver) KeyFromURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	if !strings.EqualFold(u.Host, d.cfg.Bucket+"."+d.cfg.endpointHost()) {
		return "", false
	}
	key := strings.TrimPrefix(u.Path, "/")
	return key, key != ""
}

func isNotFound(err error) bool {
	var se alioss.ServiceError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusNotFound
	}
	return false
}
