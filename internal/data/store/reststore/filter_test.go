package reststore

import (
	"testing"

	"github.com/yungbote/lms-backend/internal/data/store"
)

func TestFilterParams(t *testing.T) {
	params, err := filterParams(store.Where{
		"teacherId":  "t1",
		"pdfUrl":     nil,
		"title":      store.Contains("go"),
		"id":         store.In("a", "b"),
		"categories": store.HasSome("x y", "z"),
	})
	if err != nil {
		t.Fatalf("filterParams: %v", err)
	}
	want := map[string]string{
		"teacher_id": "eq.t1",
		"pdf_url":    "is.null",
		"title":      "ilike.*go*",
		"id":         "in.(a,b)",
		"categories": `ov.{"x y",z}`,
	}
	for k, v := range want {
		if got := params.Get(k); got != v {
			t.Fatalf("%s: want %q got %q", k, v, got)
		}
	}
	if params.Has("or") {
		t.Fatalf("unexpected or param: %v", params)
	}
}

func TestFilterParamsOr(t *testing.T) {
	params, err := filterParams(store.Where{
		"role": "student",
		store.OR: []store.Where{
			{"name": store.Contains("ann")},
			{"email": "ann@example.com"},
			{"role": "teacher", "provinsi": "Bali"},
		},
	})
	if err != nil {
		t.Fatalf("filterParams: %v", err)
	}
	if got := params.Get("role"); got != "eq.student" {
		t.Fatalf("sibling condition must stay a separate param, got %q", got)
	}
	want := `(name.ilike.*ann*,email.eq."ann@example.com",and(provinsi.eq.Bali,role.eq.teacher))`
	if got := params.Get("or"); got != want {
		t.Fatalf("or: want %q got %q", want, got)
	}
}

func TestFilterParamsEmptyBranchDropsDisjunction(t *testing.T) {
	params, err := filterParams(store.Where{store.OR: []store.Where{{"name": "x"}, {}}})
	if err != nil {
		t.Fatalf("filterParams: %v", err)
	}
	if params.Has("or") {
		t.Fatalf("expected no or param, got %v", params)
	}
}

func TestRangeHeader(t *testing.T) {
	tests := []struct {
		take, skip int
		want       string
	}{
		{0, 0, ""},
		{10, 0, "0-9"},
		{10, 20, "20-29"},
		{0, 5, "5-"},
	}
	for _, tc := range tests {
		if got := rangeHeader(tc.take, tc.skip); got != tc.want {
			t.Fatalf("rangeHeader(%d,%d): want %q got %q", tc.take, tc.skip, tc.want, got)
		}
	}
}

func TestParseContentRange(t *testing.T) {
	if n, err := parseContentRange("0-24/312"); err != nil || n != 312 {
		t.Fatalf("want 312, got %d %v", n, err)
	}
	if n, err := parseContentRange("*/0"); err != nil || n != 0 {
		t.Fatalf("want 0, got %d %v", n, err)
	}
	if _, err := parseContentRange("0-24/*"); err == nil {
		t.Fatalf("expected error for inexact count")
	}
}
