// Package services holds the LMS business rules. Every service talks to the
// data layer through store.Store only, so the same code runs on each backend.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/yungbote/lms-backend/internal/platform/apierr"
	"github.com/yungbote/lms-backend/internal/platform/storage"
)

// ObjectStore is the part of the storage gateway the services use.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys []string) error
	DeletePrefix(ctx context.Context, prefix string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	ExtractFileNameFromURL(raw string) (string, bool)
	ReplaceWithPublicURL(raw string) string
}

var _ ObjectStore = (*storage.Gateway)(nil)

// validate checks fields that reach the services without a gin binding step.
var validate = validator.New()

// BulkResult counts the outcome of a fan-out. A non-zero Failed always comes
// with an *apierr.PartialFailure error.
type BulkResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failedCount"`
}

// Page is the optional paging window of a list call.
type Page struct {
	Take int
	Skip int
}

func newID() string { return uuid.NewString() }

func nowUTC() time.Time { return time.Now().UTC() }

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// uniqueStrings drops blanks and duplicates, keeping first-seen order.
func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// uploadError maps a gateway refusal to a validation failure.
func uploadError(err error) error {
	var pe *storage.PolicyError
	if errors.As(err, &pe) {
		return apierr.Validation("%s", pe.Error())
	}
	return apierr.Backend("upload file", err)
}
