package gormstore

import (
	"reflect"
	"testing"

	"github.com/lib/pq"

	"github.com/yungbote/lms-backend/internal/data/store"
)

func TestBuildWhere(t *testing.T) {
	tests := []struct {
		name string
		in   store.Where
		sql  string
		vars []any
	}{
		{
			name: "empty",
			in:   store.Where{},
			sql:  "",
			vars: []any{},
		},
		{
			name: "equality and null",
			in:   store.Where{"teacherId": "t1", "pdfURL": nil},
			sql:  `"pdf_url" IS NULL AND "teacher_id" = ?`,
			vars: []any{"t1"},
		},
		{
			name: "contains escapes wildcards",
			in:   store.Where{"title": store.Contains("50%_off")},
			sql:  `"title" ILIKE ?`,
			vars: []any{`%50\%\_off%`},
		},
		{
			name: "in",
			in:   store.Where{"id": store.In([]string{"a", "b"})},
			sql:  `"id" IN ?`,
			vars: []any{[]any{"a", "b"}},
		},
		{
			name: "empty in matches nothing",
			in:   store.Where{"id": store.In[string]()},
			sql:  `1 = 0`,
			vars: []any{},
		},
		{
			name: "has some",
			in:   store.Where{"categories": store.HasSome("c1", "c2")},
			sql:  `"categories" && ?::text[]`,
			vars: []any{pq.StringArray{"c1", "c2"}},
		},
		{
			name: "or with sibling",
			in: store.Where{
				"role": "student",
				store.OR: []store.Where{
					{"name": store.Contains("ann")},
					{"email": store.Contains("ann")},
				},
			},
			sql:  `"role" = ? AND (("name" ILIKE ?) OR ("email" ILIKE ?))`,
			vars: []any{"student", "%ann%", "%ann%"},
		},
		{
			name: "empty or branch matches everything",
			in: store.Where{
				"role":   "student",
				store.OR: []store.Where{{"name": "x"}, {}},
			},
			sql:  `"role" = ?`,
			vars: []any{"student"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sql, vars, err := buildWhere(tc.in)
			if err != nil {
				t.Fatalf("buildWhere: %v", err)
			}
			if sql != tc.sql {
				t.Fatalf("sql: want %q got %q", tc.sql, sql)
			}
			if !reflect.DeepEqual(vars, tc.vars) {
				t.Fatalf("vars: want %#v got %#v", tc.vars, vars)
			}
		})
	}
}

func TestBuildWhereRejectsNestedRelations(t *testing.T) {
	if _, _, err := buildWhere(store.Where{"course": store.Where{"id": "x"}}); err == nil {
		t.Fatalf("expected nested relation filter to fail")
	}
}

func TestColumnPatchWrapsStringSlices(t *testing.T) {
	got := columnPatch(store.Patch{"categories": []string{"a"}, "teacherId": "t"})
	if _, ok := got["categories"].(pq.StringArray); !ok {
		t.Fatalf("expected pq.StringArray, got %T", got["categories"])
	}
	if got["teacher_id"] != "t" {
		t.Fatalf("expected snake key teacher_id, got %#v", got)
	}
}
