package store

import "testing"

func TestWhereSplit(t *testing.T) {
	w := Where{
		"teacherId":  "t1",
		"title":      Contains("Go"),
		"id":         In([]string{"a", "b"}),
		"categories": HasSome("x", "y"),
		OR: []Where{
			{"name": Contains("ann")},
			{"email": Contains("ann")},
		},
	}
	conds, branches, err := w.Split()
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(conds) != 4 {
		t.Fatalf("conds: want 4 got %d", len(conds))
	}
	// keys come back sorted
	if conds[0].Field != "categories" || conds[0].Kind != CondHasSome || len(conds[0].Values) != 2 {
		t.Fatalf("conds[0]: %+v", conds[0])
	}
	if conds[1].Field != "id" || conds[1].Kind != CondIn || len(conds[1].Values) != 2 {
		t.Fatalf("conds[1]: %+v", conds[1])
	}
	if conds[2].Field != "teacherId" || conds[2].Kind != CondEq || conds[2].Value != "t1" {
		t.Fatalf("conds[2]: %+v", conds[2])
	}
	if conds[3].Field != "title" || conds[3].Kind != CondContains {
		t.Fatalf("conds[3]: %+v", conds[3])
	}
	if len(branches) != 2 {
		t.Fatalf("branches: want 2 got %d", len(branches))
	}
}

func TestWhereSplitRejectsNesting(t *testing.T) {
	if _, _, err := (Where{"teacher": Where{"name": "x"}}).Split(); err == nil {
		t.Fatalf("expected relation filter error")
	}
	nested := Where{OR: []Where{{OR: []Where{{"a": 1}}}}}
	if _, _, err := nested.Split(); err == nil {
		t.Fatalf("expected nested OR error")
	}
	if _, _, err := (Where{OR: "bad"}).Split(); err == nil {
		t.Fatalf("expected OR type error")
	}
}
