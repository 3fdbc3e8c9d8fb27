package store

import (
	"reflect"
	"testing"
)

func TestToSnakeToCamel(t *testing.T) {
	cases := []struct {
		camel string
		snake string
	}{
		{"courseId", "course_id"},
		{"teacherName", "teacher_name"},
		{"pdfUrl", "pdf_url"},
		{"enrolledAt", "enrolled_at"},
		{"id", "id"},
		{"order", "order"},
		{"address2Line", "address2_line"},
	}
	for _, tc := range cases {
		if got := ToSnake(tc.camel); got != tc.snake {
			t.Fatalf("ToSnake(%q): want=%q got=%q", tc.camel, tc.snake, got)
		}
		if got := ToCamel(tc.snake); got != tc.camel {
			t.Fatalf("ToCamel(%q): want=%q got=%q", tc.snake, tc.camel, got)
		}
	}
	if got := ToSnake("pdfURL"); got != "pdf_url" {
		t.Fatalf("ToSnake(pdfURL): got=%q", got)
	}
}

func TestKeysRoundTrip(t *testing.T) {
	in := map[string]any{"courseId": "x", "teacherName": "y"}
	out := KeysToCamel(KeysToSnake(in))
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("round trip: want=%v got=%v", in, out)
	}
}

func TestKeysTranslationNested(t *testing.T) {
	in := map[string]any{
		"courseId": "c1",
		"teacher": map[string]any{
			"teacherName": "T",
			"homeRegion":  nil,
		},
		"materialSections": []any{
			map[string]any{"sectionTitle": "a", "sortOrder": float64(1)},
			"plain",
			nil,
		},
		"categoryIds": []any{"a", "b"},
	}

	snake := KeysToSnake(in).(map[string]any)
	teacher := snake["teacher"].(map[string]any)
	if _, ok := teacher["teacher_name"]; !ok {
		t.Fatalf("nested object keys not converted: %v", teacher)
	}
	if v, ok := teacher["home_region"]; !ok || v != nil {
		t.Fatalf("nil leaf lost: %v", teacher)
	}
	sections := snake["material_sections"].([]any)
	first := sections[0].(map[string]any)
	if first["section_title"] != "a" || first["sort_order"] != float64(1) {
		t.Fatalf("array element keys not converted: %v", first)
	}
	if sections[1] != "plain" || sections[2] != nil {
		t.Fatalf("array leaves changed: %v", sections)
	}

	back := KeysToCamel(snake)
	if !reflect.DeepEqual(back, in) {
		t.Fatalf("nested round trip: want=%v got=%v", in, back)
	}
}

func TestKeysTranslationLeaves(t *testing.T) {
	if got := KeysToSnake(nil); got != nil {
		t.Fatalf("nil: got=%v", got)
	}
	if got := KeysToCamel("course_id"); got != "course_id" {
		t.Fatalf("string leaves are values, not keys: got=%v", got)
	}
	rows := []map[string]any{{"user_id": "u1"}}
	got := KeysToCamel(rows).([]any)
	if got[0].(map[string]any)["userId"] != "u1" {
		t.Fatalf("[]map rows: got=%v", got)
	}
}
