package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/yungbote/lms-backend/internal/data/store"
	"github.com/yungbote/lms-backend/internal/data/store/memstore"
	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/platform/apierr"
)

func TestAssignToUsersReportsPartialFailure(t *testing.T) {
	f := newFixture(t)
	f.category(t, "cat1", "Math")
	f.st.AddFailFunc(func(table string, op memstore.Op, subject map[string]any) error {
		if table == "user_categories" && op == memstore.OpUpsert && subject["userId"] == "u3" {
			return errors.New("write timeout")
		}
		return nil
	})

	res, err := f.categories.AssignToUsers(context.Background(), "cat1", []string{"u1", "u2", "u3", "u4", "u5"})
	var pf *apierr.PartialFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected PartialFailure, got %v", err)
	}
	if res.Failed != 1 || res.Succeeded != 4 {
		t.Fatalf("unexpected counts %+v", res)
	}
	if pf.Failed != 1 || len(pf.Items) != 1 || pf.Items[0].ID != "u3" {
		t.Fatalf("unexpected failure detail %+v", pf)
	}
	if apierr.StatusOf(err) != http.StatusMultiStatus {
		t.Fatalf("status: want 207 got %d", apierr.StatusOf(err))
	}
	n, _ := f.st.UserCategories().Count(context.Background(), store.Where{"categoryId": "cat1"})
	if n != 4 {
		t.Fatalf("succeeded assignments must be kept, have %d", n)
	}
}

func TestAssignToUsersIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.category(t, "cat1", "Math")
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := f.categories.AssignToUsers(ctx, "cat1", []string{"u1", "u1", "u2"}); err != nil {
			t.Fatalf("AssignToUsers #%d: %v", i, err)
		}
	}
	n, _ := f.st.UserCategories().Count(ctx, store.Where{})
	if n != 2 {
		t.Fatalf("want 2 assignments, got %d", n)
	}
}

func TestAssignToUnknownCategory(t *testing.T) {
	f := newFixture(t)
	_, err := f.categories.AssignToUsers(context.Background(), "missing", []string{"u1"})
	if apierr.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestResolveNamesDropsStaleIDs(t *testing.T) {
	f := newFixture(t)
	f.category(t, "c1", "Art")
	f.category(t, "c2", "Biology")
	if err := f.categories.Delete(context.Background(), "c1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	names, err := f.categories.ResolveNames(context.Background(), []string{"c2", "c1", "ghost"})
	if err != nil {
		t.Fatalf("ResolveNames: %v", err)
	}
	if len(names) != 1 || names[0] != "Biology" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestCreateCategoryRequiresName(t *testing.T) {
	f := newFixture(t)
	if _, err := f.categories.Create(context.Background(), CategoryInput{Name: "  "}); apierr.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestSetCourseCategoriesChecksOwnership(t *testing.T) {
	f := newFixture(t)
	f.category(t, "cat1", "Math")
	f.course(t, "k1", "t1")

	if _, err := f.categories.SetCourseCategories(as("t2", types.RoleTeacher), "k1", []string{"cat1"}); apierr.StatusOf(err) != http.StatusForbidden {
		t.Fatalf("other teacher: expected 403, got %v", err)
	}
	if _, err := f.categories.SetCourseCategories(as("t1", types.RoleTeacher), "k1", []string{"nope"}); apierr.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("unknown category: expected 400, got %v", err)
	}
	course, err := f.categories.SetCourseCategories(as("t1", types.RoleTeacher), "k1", []string{"cat1"})
	if err != nil {
		t.Fatalf("SetCourseCategories: %v", err)
	}
	if len(course.Categories) != 1 || course.Categories[0] != "cat1" {
		t.Fatalf("unexpected categories %v", course.Categories)
	}
}
