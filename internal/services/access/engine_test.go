package access

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/lib/pq"

	"github.com/yungbote/lms-backend/internal/data/store/memstore"
	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/platform/apierr"
	"github.com/yungbote/lms-backend/internal/platform/ctxutil"
	"github.com/yungbote/lms-backend/internal/platform/logger"
)

func newFixture(t *testing.T) (*memstore.Store, Engine) {
	t.Helper()
	st := memstore.New(logger.Nop())
	return st, NewEngine(logger.Nop(), st, 4)
}

func seedCourse(t *testing.T, st *memstore.Store, id string, cats ...string) types.Course {
	t.Helper()
	c := types.Course{ID: id, Title: "Course " + id, TeacherID: "t1", Categories: pq.StringArray(cats)}
	if c.Categories == nil {
		c.Categories = pq.StringArray{}
	}
	if err := st.Courses().Create(context.Background(), &c); err != nil {
		t.Fatalf("seed course %s: %v", id, err)
	}
	return c
}

func assignCategories(t *testing.T, st *memstore.Store, userID string, cats ...string) {
	t.Helper()
	for _, cat := range cats {
		row := types.UserCategory{UserID: userID, CategoryID: cat}
		if err := st.UserCategories().Create(context.Background(), &row); err != nil {
			t.Fatalf("assign %s to %s: %v", cat, userID, err)
		}
	}
}

func TestPublicCourseIsOpenToStudents(t *testing.T) {
	st, eng := newFixture(t)
	seedCourse(t, st, "c1")

	ok, err := eng.IsCourseAccessibleByUser(context.Background(), Request{UserID: "s1", Role: types.RoleStudent, CourseID: "c1"})
	if err != nil {
		t.Fatalf("IsCourseAccessibleByUser: %v", err)
	}
	if !ok {
		t.Fatalf("public course must be accessible")
	}
}

func TestCategoryIntersection(t *testing.T) {
	tests := []struct {
		name     string
		userCats []string
		want     bool
	}{
		{"disjoint", []string{"C"}, false},
		{"overlapping", []string{"B", "C"}, true},
		{"no categories", nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st, eng := newFixture(t)
			seedCourse(t, st, "c1", "A", "B")
			assignCategories(t, st, "s1", tc.userCats...)

			got, err := eng.IsCourseAccessibleByUser(context.Background(), Request{UserID: "s1", Role: types.RoleStudent, CourseID: "c1"})
			if err != nil {
				t.Fatalf("IsCourseAccessibleByUser: %v", err)
			}
			if got != tc.want {
				t.Fatalf("want %v got %v", tc.want, got)
			}
		})
	}
}

func TestPrivilegedRolesBypassCategories(t *testing.T) {
	st, eng := newFixture(t)
	seedCourse(t, st, "c1", "A")
	// any backend call would fail, so the bypass must not touch the store
	st.FailOn("courses", "", errors.New("boom"))
	st.FailOn("user_categories", "", errors.New("boom"))

	for _, role := range []types.Role{types.RoleAdmin, types.RoleTeacher} {
		ok, err := eng.IsCourseAccessibleByUser(context.Background(), Request{UserID: "u1", Role: role, CourseID: "c1"})
		if err != nil || !ok {
			t.Fatalf("role %s: ok=%v err=%v", role, ok, err)
		}
	}
}

func TestMissingRelationFailsOpen(t *testing.T) {
	for _, table := range []string{"courses", "user_categories"} {
		t.Run(table, func(t *testing.T) {
			st, eng := newFixture(t)
			seedCourse(t, st, "c1", "A")
			assignCategories(t, st, "s1", "Z")
			st.DropTable(table)

			ok, err := eng.IsCourseAccessibleByUser(context.Background(), Request{UserID: "s1", Role: types.RoleStudent, CourseID: "c1"})
			if err != nil {
				t.Fatalf("IsCourseAccessibleByUser: %v", err)
			}
			if !ok {
				t.Fatalf("missing %s must allow access", table)
			}
		})
	}
}

func TestCategoryLookupFeatureState(t *testing.T) {
	st, eng := newFixture(t)
	st.DropTable("user_categories")
	cats, state, err := eng.UserCategories(context.Background(), "s1")
	if err != nil || state != FeatureNotProvisioned || cats != nil {
		t.Fatalf("cats=%v state=%s err=%v", cats, state, err)
	}
}

func TestUnexpectedBackendErrorPropagates(t *testing.T) {
	st, eng := newFixture(t)
	seedCourse(t, st, "c1", "A")
	boom := errors.New("connection reset")
	st.FailOn("user_categories", memstore.OpFind, boom)

	_, err := eng.IsCourseAccessibleByUser(context.Background(), Request{UserID: "s1", Role: types.RoleStudent, CourseID: "c1"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected backend error to propagate, got %v", err)
	}
}

func TestMissingCourseIsNotFound(t *testing.T) {
	_, eng := newFixture(t)
	_, err := eng.IsCourseAccessibleByUser(context.Background(), Request{UserID: "s1", Role: types.RoleStudent, CourseID: "nope"})
	if apierr.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestFilterCoursesByAccess(t *testing.T) {
	st, eng := newFixture(t)
	c1 := seedCourse(t, st, "c1")
	c2 := seedCourse(t, st, "c2", "A")
	c3 := seedCourse(t, st, "c3", "B")
	assignCategories(t, st, "s1", "B")
	courses := []types.Course{c1, c2, c3}

	got, err := eng.FilterCoursesByAccess(context.Background(), courses, "s1", types.RoleStudent)
	if err != nil {
		t.Fatalf("FilterCoursesByAccess: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c1" || got[1].ID != "c3" {
		t.Fatalf("want [c1 c3], got %v", ids(got))
	}

	all, err := eng.FilterCoursesByAccess(context.Background(), courses, "a1", types.RoleAdmin)
	if err != nil {
		t.Fatalf("FilterCoursesByAccess admin: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("admin should see all courses, got %v", ids(all))
	}
}

func TestFilterFailsOnBackendError(t *testing.T) {
	st, eng := newFixture(t)
	c1 := seedCourse(t, st, "c1", "A")
	st.FailOn("user_categories", memstore.OpFind, errors.New("timeout"))

	if _, err := eng.FilterCoursesByAccess(context.Background(), []types.Course{c1}, "s1", types.RoleStudent); err == nil {
		t.Fatalf("expected error")
	}
}

func TestEnsureMaterialAccessRederivesCourse(t *testing.T) {
	st, eng := newFixture(t)
	seedCourse(t, st, "c1", "A")
	mat := types.Material{ID: "m1", CourseID: "c1", Title: "Week 1", Type: types.MaterialText}
	if err := st.Materials().Create(context.Background(), &mat); err != nil {
		t.Fatalf("seed material: %v", err)
	}
	student := &ctxutil.Principal{UserID: "s1", Role: types.RoleStudent}

	_, _, err := eng.EnsureMaterialAccess(context.Background(), student, "m1")
	if apierr.StatusOf(err) != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}

	assignCategories(t, st, "s1", "A")
	got, course, err := eng.EnsureMaterialAccess(context.Background(), student, "m1")
	if err != nil {
		t.Fatalf("EnsureMaterialAccess: %v", err)
	}
	if got.ID != "m1" || course.ID != "c1" {
		t.Fatalf("unexpected material %s course %s", got.ID, course.ID)
	}

	if _, _, err := eng.EnsureMaterialAccess(context.Background(), student, "missing"); apierr.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
	if _, _, err := eng.EnsureMaterialAccess(context.Background(), nil, "m1"); apierr.StatusOf(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestEnsureTeacherOwnsCourse(t *testing.T) {
	st, eng := newFixture(t)
	seedCourse(t, st, "c1")

	tests := []struct {
		name string
		p    *ctxutil.Principal
		want int
	}{
		{"owner", &ctxutil.Principal{UserID: "t1", Role: types.RoleTeacher}, http.StatusOK},
		{"other teacher", &ctxutil.Principal{UserID: "t2", Role: types.RoleTeacher}, http.StatusForbidden},
		{"admin", &ctxutil.Principal{UserID: "a1", Role: types.RoleAdmin}, http.StatusOK},
		{"student", &ctxutil.Principal{UserID: "s1", Role: types.RoleStudent}, http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := eng.EnsureTeacherOwnsCourse(context.Background(), tc.p, "c1")
			if got := apierr.StatusOf(err); got != tc.want {
				t.Fatalf("status: want %d got %d (%v)", tc.want, got, err)
			}
		})
	}
}

func ids(cs []types.Course) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func TestEnsureCourseAccessLooksUpTwice(t *testing.T) {
	st, eng := newFixture(t)
	seedCourse(t, st, "c1", "A")
	assignCategories(t, st, "s1", "A")

	lookups := map[string]int{}
	st.AddFailFunc(func(table string, op memstore.Op, _ map[string]any) error {
		if op == memstore.OpFind {
			lookups[table]++
		}
		return nil
	})

	student := &ctxutil.Principal{UserID: "s1", Role: types.RoleStudent}
	if _, err := eng.EnsureCourseAccess(context.Background(), student, "c1"); err != nil {
		t.Fatalf("EnsureCourseAccess: %v", err)
	}
	if lookups["courses"] != 1 || lookups["user_categories"] != 1 {
		t.Fatalf("want one course and one user-category lookup, got %v", lookups)
	}
}
