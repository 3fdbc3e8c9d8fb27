package reststore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"

	"github.com/yungbote/lms-backend/internal/data/store"
	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/platform/logger"
)

type recorded struct {
	method string
	path   string
	query  string
	header http.Header
	body   string
}

type fakePostgREST struct {
	mu       sync.Mutex
	requests []recorded
	handle   func(w http.ResponseWriter, r *http.Request)
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{
		method: r.Method,
		path:   r.URL.Path,
		query:  r.URL.RawQuery,
		header: r.Header.Clone(),
		body:   string(body),
	})
	f.mu.Unlock()
	f.handle(w, r)
}

func newTestStore(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) (store.Store, *fakePostgREST) {
	t.Helper()
	fake := &fakePostgREST{handle: handle}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	s := NewWithClient(resty.New().SetBaseURL(srv.URL), log)
	return s, fake
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestFindUniqueReturnsNilWhenAbsent(t *testing.T) {
	s, fake := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[]`)
	})
	got, err := s.Courses().FindUnique(context.Background(), store.Where{"id": "c1"})
	if err != nil || got != nil {
		t.Fatalf("expected nil,nil got %v %v", got, err)
	}
	req := fake.requests[0]
	if req.method != http.MethodGet || req.path != "/courses" {
		t.Fatalf("unexpected request %s %s", req.method, req.path)
	}
	if !strings.Contains(req.query, "id=eq.c1") {
		t.Fatalf("expected id filter, got %q", req.query)
	}
	if req.header.Get("Range") != "0-0" {
		t.Fatalf("expected single row range, got %q", req.header.Get("Range"))
	}
}

func TestFindManyTranslatesKeys(t *testing.T) {
	s, fake := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[{"id":"c1","title":"Go","teacher_id":"t1","categories":["a","b"],"created_at":"2024-01-01T00:00:00Z"}]`)
	})
	rows, err := s.Courses().FindMany(context.Background(), store.Query{
		Where:   store.Where{"teacherId": "t1"},
		Select:  map[string]any{"id": true, "teacherId": true, "title": true, "categories": true, "materials": map[string]any{"id": true}},
		OrderBy: []store.Order{{Field: "createdAt", Desc: true}},
		Take:    5,
		Skip:    10,
	})
	if err != nil {
		t.Fatalf("FindMany: %v", err)
	}
	if len(rows) != 1 || rows[0].TeacherID != "t1" || len(rows[0].Categories) != 2 {
		t.Fatalf("unexpected rows %+v", rows)
	}
	req := fake.requests[0]
	for _, want := range []string{"teacher_id=eq.t1", "select=categories%2Cid%2Cteacher_id%2Ctitle", "order=created_at.desc"} {
		if !strings.Contains(req.query, want) {
			t.Fatalf("expected %q in query %q", want, req.query)
		}
	}
	if req.header.Get("Range") != "10-14" {
		t.Fatalf("expected range 10-14, got %q", req.header.Get("Range"))
	}
}

func TestCountUsesHeadRequest(t *testing.T) {
	s, fake := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "0-9/42")
		w.WriteHeader(http.StatusOK)
	})
	n, err := s.Enrollments().Count(context.Background(), store.Where{"courseId": "c1"})
	if err != nil || n != 42 {
		t.Fatalf("Count: %d %v", n, err)
	}
	req := fake.requests[0]
	if req.method != http.MethodHead {
		t.Fatalf("expected HEAD, got %s", req.method)
	}
	if req.header.Get("Prefer") != "count=exact" {
		t.Fatalf("expected exact count preference, got %q", req.header.Get("Prefer"))
	}
}

func TestUpsertPatchesExistingRow(t *testing.T) {
	s, fake := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			writeJSON(w, http.StatusCreated, `[]`)
		case http.MethodPatch:
			writeJSON(w, http.StatusOK, `[{"id":"r1","user_id":"u1","course_id":"c1","rating":5}]`)
		default:
			t.Errorf("unexpected %s", r.Method)
		}
	})
	row := &types.CourseRating{ID: "r2", UserID: "u1", CourseID: "c1", Rating: 5}
	err := s.CourseRatings().Upsert(context.Background(), row, []string{"userId", "courseId"}, store.Patch{"rating": 5})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if row.ID != "r1" {
		t.Fatalf("expected existing row id r1, got %q", row.ID)
	}
	if len(fake.requests) != 2 {
		t.Fatalf("expected insert then patch, got %d requests", len(fake.requests))
	}
	insert := fake.requests[0]
	if !strings.Contains(insert.query, "on_conflict=user_id%2Ccourse_id") {
		t.Fatalf("expected on_conflict, got %q", insert.query)
	}
	if !strings.Contains(insert.header.Get("Prefer"), "resolution=ignore-duplicates") {
		t.Fatalf("expected ignore-duplicates, got %q", insert.header.Get("Prefer"))
	}
	if !strings.Contains(insert.body, `"user_id":"u1"`) {
		t.Fatalf("expected snake_case body, got %s", insert.body)
	}
	patch := fake.requests[1]
	if !strings.Contains(patch.query, "user_id=eq.u1") || !strings.Contains(patch.query, "course_id=eq.c1") {
		t.Fatalf("expected conflict filters on patch, got %q", patch.query)
	}
	if strings.Contains(patch.body, "id") {
		t.Fatalf("patch must only carry update fields, got %s", patch.body)
	}
}

func TestCreateSkipsVirtualFields(t *testing.T) {
	s, fake := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, `[{"id":"u1","email":"a@example.com","role":"student"}]`)
	})
	u := &types.User{ID: "u1", Email: "a@example.com", Role: types.RoleStudent, Categories: []string{"c1"}}
	if err := s.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if strings.Contains(fake.requests[0].body, "categories") {
		t.Fatalf("virtual field leaked into insert: %s", fake.requests[0].body)
	}
}

func TestUpdateNotFound(t *testing.T) {
	s, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[]`)
	})
	_, err := s.Courses().Update(context.Background(), store.Where{"id": "nope"}, store.Patch{"title": "x"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBackendErrorsPropagate(t *testing.T) {
	s, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"code":"42P01","message":"relation \"public.user_categories\" does not exist"}`)
	})
	_, err := s.UserCategories().FindMany(context.Background(), store.Query{Where: store.Where{"userId": "u1"}})
	var be *store.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %T %v", err, err)
	}
	if be.Status != http.StatusNotFound || be.Code != "42P01" {
		t.Fatalf("unexpected backend error %+v", be)
	}
	if !store.IsMissingRelation(err) {
		t.Fatalf("expected missing relation classification")
	}
}

func TestGroupByCountClientSide(t *testing.T) {
	s, fake := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[{"course_id":"c1"},{"course_id":"c1"},{"course_id":"c2"}]`)
	})
	got, err := s.Enrollments().GroupByCount(context.Background(), "courseId", store.Where{"courseId": store.In("c1", "c2", "c3")})
	if err != nil {
		t.Fatalf("GroupByCount: %v", err)
	}
	if len(got) != 2 || got["c1"] != 2 || got["c2"] != 1 {
		t.Fatalf("unexpected counts %v", got)
	}
	if !strings.Contains(fake.requests[0].query, "select=course_id") {
		t.Fatalf("expected projection to the group field, got %q", fake.requests[0].query)
	}
}
