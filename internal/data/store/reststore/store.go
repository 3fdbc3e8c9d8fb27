// Package reststore implements the data access contract against a PostgREST
// endpoint, the REST dialect used by hosted Postgres backend-as-a-service
// offerings.
package reststore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yungbote/lms-backend/internal/data/store"
	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/platform/logger"
)

type Config struct {
	BaseURL string
	APIKey  string
	Schema  string
	Timeout time.Duration
}

type restStore struct {
	client *resty.Client
	log    *logger.Logger

	users            *table[types.User]
	courses          *table[types.Course]
	categories       *table[types.Category]
	userCategories   *table[types.UserCategory]
	enrollments      *table[types.Enrollment]
	materials        *table[types.Material]
	materialSections *table[types.MaterialSection]
	progress         *table[types.Progress]
	courseRatings    *table[types.CourseRating]
}

func New(cfg Config, baseLog *logger.Logger) (store.Store, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("reststore: base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("apikey", cfg.APIKey).SetAuthToken(cfg.APIKey)
	}
	if cfg.Schema != "" {
		client.SetHeader("Accept-Profile", cfg.Schema).SetHeader("Content-Profile", cfg.Schema)
	}
	return NewWithClient(client, baseLog), nil
}

// NewWithClient wires a preconfigured client; its base URL must point at the
// PostgREST root.
func NewWithClient(client *resty.Client, baseLog *logger.Logger) store.Store {
	storeLog := baseLog.With("store", string(store.BackendPostgREST))
	return &restStore{
		client:           client,
		log:              storeLog,
		users:            newTable[types.User](client, storeLog),
		courses:          newTable[types.Course](client, storeLog),
		categories:       newTable[types.Category](client, storeLog),
		userCategories:   newTable[types.UserCategory](client, storeLog),
		enrollments:      newTable[types.Enrollment](client, storeLog),
		materials:        newTable[types.Material](client, storeLog),
		materialSections: newTable[types.MaterialSection](client, storeLog),
		progress:         newTable[types.Progress](client, storeLog),
		courseRatings:    newTable[types.CourseRating](client, storeLog),
	}
}

func (s *restStore) Backend() store.Backend { return store.BackendPostgREST }

// Ping fetches the OpenAPI root, which PostgREST serves without touching a table.
func (s *restStore) Ping(ctx context.Context) error {
	resp, err := s.client.R().SetContext(ctx).Get("/")
	return checkResponse(resp, err)
}

func (s *restStore) Users() store.Table[types.User] { return s.users }
func (s *restStore) Courses() store.Table[types.Course] { return s.courses }
func (s *restStore) Categories() store.Table[types.Category] { return s.categories }
func (s *restStore) UserCategories() store.Table[types.UserCategory] { return s.userCategories }
func (s *restStore) Enrollments() store.Table[types.Enrollment] { return s.enrollments }
func (s *restStore) Materials() store.Table[types.Material] { return s.materials }
func (s *restStore) MaterialSections() store.Table[types.MaterialSection] { return s.materialSections }
func (s *restStore) Progress() store.Table[types.Progress] { return s.progress }
func (s *restStore) CourseRatings() store.Table[types.CourseRating] { return s.courseRatings }
