// Package storage is the object storage gateway for material files. It
// enforces the upload policy and owns URL rewriting; a Driver talks to the
// actual provider.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/lms-backend/internal/platform/logger"
)

type Driver interface {
	Name() string
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// ObjectURL is the provider's canonical URL for key.
	ObjectURL(key string) string
	// BaseURL is the origin ObjectURL builds on; public rewriting replaces it.
	BaseURL() string
	// KeyFromURL reverses ObjectURL.
	KeyFromURL(raw string) (string, bool)
}

type PolicyReason string

const (
	PolicyEmpty       PolicyReason = "empty"
	PolicyTooLarge    PolicyReason = "too_large"
	PolicyContentType PolicyReason = "content_type"
	PolicyKey         PolicyReason = "invalid_key"
)

// PolicyError is an upload refused before it reached the provider.
type PolicyError struct {
	Reason PolicyReason
	Detail string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("upload rejected (%s): %s", e.Reason, e.Detail)
}

type Config struct {
	MaxBytes            int64
	AllowedContentTypes []string
	// PublicBaseURL replaces the driver origin in URLs handed to clients.
	PublicBaseURL string
	SignedURLTTL  time.Duration
	// DeleteConcurrency bounds DeleteMany fan-out.
	DeleteConcurrency int
}

type Gateway struct {
	log     *logger.Logger
	driver  Driver
	cfg     Config
	allowed map[string]struct{}
}

func NewGateway(log *logger.Logger, driver Driver, cfg Config) *Gateway {
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = 15 * time.Minute
	}
	if cfg.DeleteConcurrency <= 0 {
		cfg.DeleteConcurrency = 8
	}
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	allowed := make(map[string]struct{}, len(cfg.AllowedContentTypes))
	for _, ct := range cfg.AllowedContentTypes {
		if ct = normalizeContentType(ct); ct != "" {
			allowed[ct] = struct{}{}
		}
	}
	return &Gateway{
		log:     log.With("service", "StorageGateway", "driver", driver.Name()),
		driver:  driver,
		cfg:     cfg,
		allowed: allowed,
	}
}

// Upload stores data under key and returns the client-facing URL.
func (g *Gateway) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" || strings.Contains(key, "..") {
		return "", &PolicyError{Reason: PolicyKey, Detail: fmt.Sprintf("invalid object key %q", key)}
	}
	if len(data) == 0 {
		return "", &PolicyError{Reason: PolicyEmpty, Detail: "file is empty"}
	}
	if g.cfg.MaxBytes > 0 && int64(len(data)) > g.cfg.MaxBytes {
		return "", &PolicyError{
			Reason: PolicyTooLarge,
			Detail: fmt.Sprintf("file is %d bytes, limit is %d", len(data), g.cfg.MaxBytes),
		}
	}
	ct := normalizeContentType(contentType)
	if len(g.allowed) > 0 {
		if _, ok := g.allowed[ct]; !ok {
			return "", &PolicyError{Reason: PolicyContentType, Detail: fmt.Sprintf("content type %q is not allowed", contentType)}
		}
	}
	if err := g.driver.Put(ctx, key, bytes.NewReader(data), int64(len(data)), ct); err != nil {
		g.log.Error("Object upload failed", "key", key, "error", err)
		return "", fmt.Errorf("upload %q: %w", key, err)
	}
	return g.ReplaceWithPublicURL(g.driver.ObjectURL(key)), nil
}

func (g *Gateway) Delete(ctx context.Context, key string) error {
	if err := g.driver.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// DeleteMany removes every key, continuing past failures. The returned error
// joins each failure.
func (g *Gateway) DeleteMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	errs := make([]error, len(keys))
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.cfg.DeleteConcurrency)
	for i, key := range keys {
		grp.Go(func() error {
			errs[i] = g.Delete(gctx, key)
			return nil
		})
	}
	_ = grp.Wait()
	return errors.Join(errs...)
}

func (g *Gateway) DeletePrefix(ctx context.Context, prefix string) error {
	prefix = strings.TrimLeft(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return &PolicyError{Reason: PolicyKey, Detail: "refusing to delete an empty prefix"}
	}
	if err := g.driver.DeletePrefix(ctx, prefix); err != nil {
		return fmt.Errorf("delete prefix %q: %w", prefix, err)
	}
	return nil
}

// SignedURL returns a time-limited download URL. ttl <= 0 uses the default.
func (g *Gateway) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = g.cfg.SignedURLTTL
	}
	u, err := g.driver.SignedURL(ctx, key, ttl)
	if err != nil {
		return "", fmt.Errorf("sign %q: %w", key, err)
	}
	return g.ReplaceWithPublicURL(u), nil
}

// ExtractFileNameFromURL returns the object key a stored URL points at,
// accepting both public and provider URLs.
func (g *Gateway) ExtractFileNameFromURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if g.cfg.PublicBaseURL != "" && strings.HasPrefix(raw, g.cfg.PublicBaseURL+"/") {
		raw = strings.TrimRight(g.driver.BaseURL(), "/") + strings.TrimPrefix(raw, g.cfg.PublicBaseURL)
	}
	key, ok := g.driver.KeyFromURL(raw)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// ReplaceWithPublicURL rewrites a provider URL onto the public base. URLs from
// other origins are returned unchanged.
func (g *Gateway) ReplaceWithPublicURL(raw string) string {
	if g.cfg.PublicBaseURL == "" || raw == "" {
		return raw
	}
	base := strings.TrimRight(g.driver.BaseURL(), "/")
	if base == "" || !strings.HasPrefix(raw, base) {
		return raw
	}
	rest := strings.TrimPrefix(raw, base)
	if rest != "" && !strings.HasPrefix(rest, "/") && !strings.HasPrefix(rest, "?") {
		return raw
	}
	return g.cfg.PublicBaseURL + rest
}

// MaterialKey builds the object key for a course material file.
func MaterialKey(courseID, materialID, filename string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
	return fmt.Sprintf("courses/%s/materials/%s/%s", courseID, materialID, name)
}

// CoursePrefix is the key prefix under which every file of a course lives.
func CoursePrefix(courseID string) string {
	return fmt.Sprintf("courses/%s/", courseID)
}

func normalizeContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}
