package services

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/yungbote/lms-backend/internal/data/store"
	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/platform/apierr"
)

func TestEnrollIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.course(t, "c1", "t1")
	ctx := as("s1", types.RoleStudent)

	first, created, err := f.enrollments.Enroll(ctx, "c1")
	if err != nil || !created {
		t.Fatalf("first Enroll: created=%v err=%v", created, err)
	}
	second, created, err := f.enrollments.Enroll(ctx, "c1")
	if err != nil {
		t.Fatalf("second Enroll: %v", err)
	}
	if created || second.ID != first.ID {
		t.Fatalf("second enroll must return the first enrollment: %s vs %s", second.ID, first.ID)
	}
	n, _ := f.st.Enrollments().Count(context.Background(), store.Where{"userId": "s1", "courseId": "c1"})
	if n != 1 {
		t.Fatalf("want one enrollment row, got %d", n)
	}
}

func TestConcurrentEnrollKeepsOneRow(t *testing.T) {
	f := newFixture(t)
	f.course(t, "c1", "t1")
	ctx := as("s1", types.RoleStudent)

	const callers = 8
	ids := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, _, err := f.enrollments.Enroll(ctx, "c1")
			errs[i] = err
			if e != nil {
				ids[i] = e.ID
			}
		}(i)
	}
	wg.Wait()
	for i := range ids {
		if errs[i] != nil {
			t.Fatalf("Enroll %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("every caller must see the same enrollment: %s vs %s", ids[i], ids[0])
		}
	}
	n, _ := f.st.Enrollments().Count(context.Background(), store.Where{"userId": "s1", "courseId": "c1"})
	if n != 1 {
		t.Fatalf("want one enrollment row, got %d", n)
	}
}

func TestEnrollRespectsCategories(t *testing.T) {
	f := newFixture(t)
	f.course(t, "c1", "t1", "cat1")
	if _, _, err := f.enrollments.Enroll(as("s1", types.RoleStudent), "c1"); apierr.StatusOf(err) != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
	if _, _, err := f.enrollments.Enroll(as("s1", types.RoleStudent), "ghost"); apierr.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestUnenrollAndMyEnrollments(t *testing.T) {
	f := newFixture(t)
	f.course(t, "c1", "t1")
	f.course(t, "c2", "t1")
	ctx := as("s1", types.RoleStudent)
	for _, id := range []string{"c1", "c2"} {
		if _, _, err := f.enrollments.Enroll(ctx, id); err != nil {
			t.Fatalf("Enroll %s: %v", id, err)
		}
	}
	if err := f.enrollments.Unenroll(ctx, "c1"); err != nil {
		t.Fatalf("Unenroll: %v", err)
	}
	if err := f.enrollments.Unenroll(ctx, "c1"); apierr.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("second Unenroll: expected 404, got %v", err)
	}
	mine, err := f.enrollments.MyEnrollments(ctx)
	if err != nil {
		t.Fatalf("MyEnrollments: %v", err)
	}
	if len(mine) != 1 || mine[0].Course.ID != "c2" {
		t.Fatalf("unexpected enrollments %+v", mine)
	}
}
