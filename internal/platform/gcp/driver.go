package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/yungbote/lms-backend/internal/platform/logger"
)

const gcsOrigin = "https://storage.googleapis.com"

// Driver stores material files in a single GCS bucket, or in a fake-gcs
// emulator for local development.
type Driver struct {
	log    *logger.Logger
	client *storage.Client
	cfg    Config
}

func NewDriver(ctx context.Context, log *logger.Logger, cfg Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := newStorageClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	driverLog := log.With("service", "GCSDriver")
	driverLog.Info(
		"Object storage initialized",
		"mode", cfg.Mode,
		"mode_source", cfg.ModeSource(),
		"emulator_host", cfg.EmulatorHost,
		"bucket", cfg.Bucket,
	)
	return &Driver{log: driverLog, client: client, cfg: cfg}, nil
}

func newStorageClient(ctx context.Context, cfg Config) (*storage.Client, error) {
	switch cfg.Mode {
	case ModeGCS:
		opts := ClientOptionsFromEnv()
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		return storage.NewClient(ctx, opts...)
	case ModeGCSEmulator:
		// the client library only honours the emulator through this variable
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, &ConfigError{Code: ConfigErrorInvalidMode, Mode: string(cfg.Mode)}
	}
}

func (d *Driver) Name() string { return string(d.cfg.Mode) }

func (d *Driver) Close() error { return d.client.Close() }

func (d *Driver) object(key string) *storage.ObjectHandle {
	return d.client.Bucket(d.cfg.Bucket).Object(key)
}

func (d *Driver) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := d.object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

// Delete treats a missing object as already deleted.
func (d *Driver) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := d.object(key).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, d.cfg.Bucket, err)
	}
	return nil
}

func (d *Driver) DeletePrefix(ctx context.Context, prefix string) error {
	listCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	it := d.client.Bucket(d.cfg.Bucket).Objects(listCtx, &storage.Query{Prefix: prefix})
	var errs []error
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("list %q: %w", prefix, err)
		}
		if err := d.Delete(ctx, attrs.Name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SignedURL signs a V4 GET URL. The emulator cannot verify signatures, so it
// gets the plain media URL.
func (d *Driver) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if d.cfg.IsEmulator() {
		return d.ObjectURL(key), nil
	}
	return d.client.Bucket(d.cfg.Bucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
}

func (d *Driver) BaseURL() string {
	if d.cfg.IsEmulator() {
		return d.cfg.EmulatorHost
	}
	return gcsOrigin
}

func (d *Driver) ObjectURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if d.cfg.IsEmulator() {
		return fmt.Sprintf(
			"%s/storage/v1/b/%s/o/%s?alt=media",
			d.cfg.EmulatorHost,
			url.PathEscape(d.cfg.Bucket),
			url.PathEscape(key),
		)
	}
	return fmt.Sprintf("%s/%s/%s", gcsOrigin, d.cfg.Bucket, key)
}

// KeyFromURL understands path-style, virtual-host and emulator media URLs.
func (d *Driver) KeyFromURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	p := u.Path
	media := "/storage/v1/b/" + d.cfg.Bucket + "/o/"
	switch {
	case strings.HasPrefix(p, media):
		return nonEmpty(strings.TrimPrefix(p, media))
	case strings.EqualFold(u.Host, d.cfg.Bucket+".storage.googleapis.com"):
		return nonEmpty(strings.TrimPrefix(p, "/"))
	case strings.HasPrefix(p, "/"+d.cfg.Bucket+"/"):
		return nonEmpty(strings.TrimPrefix(p, "/"+d.cfg.Bucket+"/"))
	default:
		return "", false
	}
}

func nonEmpty(s string) (string, bool) { return s, s != "" }
