package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/yungbote/lms-backend/internal/data/store/memstore"
	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/platform/ctxutil"
	"github.com/yungbote/lms-backend/internal/platform/logger"
	"github.com/yungbote/lms-backend/internal/services/access"
)

type fixture struct {
	st      *memstore.Store
	engine  access.Engine
	objects *stubObjects

	users       UserService
	categories  CategoryService
	courses     CourseService
	materials   MaterialService
	enrollments EnrollmentService
	progress    ProgressService
	ratings     RatingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Nop()
	st := memstore.New(log)
	eng := access.NewEngine(log, st, 4)
	objs := newStubObjects()
	cats := NewCategoryService(log, st, eng, 4)
	enr := NewEnrollmentService(log, st, eng)
	return &fixture{
		st:          st,
		engine:      eng,
		objects:     objs,
		users:       NewUserService(log, st, cats),
		categories:  cats,
		courses:     NewCourseService(log, st, eng, objs),
		materials:   NewMaterialService(log, st, eng, objs),
		enrollments: enr,
		progress:    NewProgressService(log, st, eng),
		ratings:     NewRatingService(log, st, eng, enr),
	}
}

func as(id string, role types.Role) context.Context {
	return ctxutil.WithPrincipal(context.Background(), &ctxutil.Principal{UserID: id, Role: role})
}

func (f *fixture) user(t *testing.T, id string, role types.Role) types.User {
	t.Helper()
	u := types.User{
		ID:        id,
		Role:      role,
		Name:      "User " + id,
		Email:     id + "@example.com",
		Password:  "x",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := f.st.Users().Create(context.Background(), &u); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return u
}

func (f *fixture) course(t *testing.T, id, teacherID string, cats ...string) types.Course {
	t.Helper()
	if cats == nil {
		cats = []string{}
	}
	c := types.Course{ID: id, Title: "Course " + id, TeacherID: teacherID, Categories: pq.StringArray(cats)}
	if err := f.st.Courses().Create(context.Background(), &c); err != nil {
		t.Fatalf("seed course %s: %v", id, err)
	}
	return c
}

func (f *fixture) category(t *testing.T, id, name string) {
	t.Helper()
	c := types.Category{ID: id, Name: name}
	if err := f.st.Categories().Create(context.Background(), &c); err != nil {
		t.Fatalf("seed category %s: %v", id, err)
	}
}

// stubObjects is an in-memory ObjectStore keyed by object key.
type stubObjects struct {
	mu         sync.Mutex
	objects    map[string][]byte
	deleted    []string
	prefixes   []string
	failDelete error
}

func newStubObjects() *stubObjects {
	return &stubObjects{objects: map[string][]byte{}}
}

const stubBase = "https://files.example.com/"

func (s *stubObjects) Upload(_ context.Context, key string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(data) == 0 {
		return "", errors.New("empty")
	}
	s.objects[key] = data
	return stubBase + key, nil
}

func (s *stubObjects) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete != nil {
		return s.failDelete
	}
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *stubObjects) DeleteMany(ctx context.Context, keys []string) error {
	var errs []error
	for _, k := range keys {
		errs = append(errs, s.Delete(ctx, k))
	}
	return errors.Join(errs...)
}

func (s *stubObjects) DeletePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete != nil {
		return s.failDelete
	}
	s.prefixes = append(s.prefixes, prefix)
	return nil
}

func (s *stubObjects) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return stubBase + key + "?sig=1", nil
}

func (s *stubObjects) ExtractFileNameFromURL(raw string) (string, bool) {
	if !strings.HasPrefix(raw, stubBase) {
		return "", false
	}
	return strings.TrimPrefix(raw, stubBase), true
}

func (s *stubObjects) ReplaceWithPublicURL(raw string) string { return raw }
