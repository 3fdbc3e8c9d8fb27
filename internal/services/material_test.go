package services

import (
	"net/http"
	"strings"
	"testing"

	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/platform/apierr"
)

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func TestCreateMaterialValidatesContent(t *testing.T) {
	f := newFixture(t)
	f.course(t, "c1", "t1")
	ctx := as("t1", types.RoleTeacher)

	cases := []struct {
		name   string
		in     MaterialInput
		status int
	}{
		{"text", MaterialInput{Title: "Read me", Type: "text", Content: strPtr("hello")}, http.StatusOK},
		{"text without content", MaterialInput{Title: "Empty", Type: "text"}, http.StatusBadRequest},
		{"markdown", MaterialInput{Title: "Notes", Type: "markdown", Content: strPtr("# Notes")}, http.StatusOK},
		{"video link", MaterialInput{Title: "Talk", Type: "video-link", Content: strPtr("https://video.example.com/v/1")}, http.StatusOK},
		{"video link not a url", MaterialInput{Title: "Talk", Type: "video-link", Content: strPtr("watch later")}, http.StatusBadRequest},
		{"pdf without file", MaterialInput{Title: "Slides", Type: "pdf"}, http.StatusBadRequest},
		{"unknown type", MaterialInput{Title: "Quiz", Type: "quiz"}, http.StatusBadRequest},
		{"blank title", MaterialInput{Title: "  ", Type: "text", Content: strPtr("x")}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.materials.Create(ctx, "c1", tc.in)
			if got := apierr.StatusOf(err); got != tc.status {
				t.Fatalf("expected %d, got %d (%v)", tc.status, got, err)
			}
		})
	}
}

func TestCreateMaterialRoles(t *testing.T) {
	f := newFixture(t)
	f.course(t, "c1", "t1")
	in := MaterialInput{Title: "Read me", Type: "text", Content: strPtr("hello")}

	if _, err := f.materials.Create(as("s1", types.RoleStudent), "c1", in); apierr.StatusOf(err) != http.StatusForbidden {
		t.Fatalf("student create: expected 403, got %v", err)
	}
	if _, err := f.materials.Create(as("a1", types.RoleAdmin), "missing", in); apierr.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("missing course: expected 404, got %v", err)
	}
}

func TestCreatePDFMaterialUploads(t *testing.T) {
	f := newFixture(t)
	f.course(t, "c1", "t1")

	m, err := f.materials.Create(as("t1", types.RoleTeacher), "c1", MaterialInput{
		Title: "Slides",
		Type:  "pdf",
		File:  &FileUpload{Name: "week 1.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := "courses/c1/materials/" + m.ID + "/week-1.pdf"
	if _, ok := f.objects.objects[want]; !ok {
		t.Fatalf("expected object %s, have %v", want, f.objects.objects)
	}
	if m.PdfURL == nil || *m.PdfURL != stubBase+want {
		t.Fatalf("unexpected pdf url %v", m.PdfURL)
	}
	if m.Order != 0 {
		t.Fatalf("first material should be ordered 0, got %d", m.Order)
	}
}

func TestMaterialsHiddenFromUnassignedStudents(t *testing.T) {
	f := newFixture(t)
	f.course(t, "c1", "t1", "cat-a")
	m, err := f.materials.Create(as("t1", types.RoleTeacher), "c1", MaterialInput{Title: "Read me", Type: "text", Content: strPtr("hello")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	student := as("s1", types.RoleStudent)
	if _, err := f.materials.ListForCourse(student, "c1"); apierr.StatusOf(err) != http.StatusForbidden {
		t.Fatalf("list: expected 403, got %v", err)
	}
	if _, err := f.materials.Get(student, m.ID); apierr.StatusOf(err) != http.StatusForbidden {
		t.Fatalf("get: expected 403, got %v", err)
	}
	if _, err := f.materials.Get(student, "nope"); apierr.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("missing material: expected 404, got %v", err)
	}
}

func TestMaterialSectionsOrdered(t *testing.T) {
	f := newFixture(t)
	f.course(t, "c1", "t1")
	ctx := as("t1", types.RoleTeacher)

	m, err := f.materials.Create(ctx, "c1", MaterialInput{
		Title: "Guide",
		Type:  "markdown",
		Sections: []SectionInput{
			{Title: "Second", Content: "b", Order: intPtr(2)},
			{Title: "First", Content: "a", Order: intPtr(1)},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := f.materials.Get(as("s1", types.RoleStudent), m.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Sections) != 2 || got.Sections[0].Title != "First" || got.Sections[1].Title != "Second" {
		t.Fatalf("unexpected sections %+v", got.Sections)
	}

	replaced := []SectionInput{{Title: "Only", Content: "c"}}
	upd, err := f.materials.Update(ctx, m.ID, MaterialUpdate{Sections: &replaced})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(upd.Sections) != 1 || upd.Sections[0].Title != "Only" {
		t.Fatalf("sections not replaced: %+v", upd.Sections)
	}

	if _, err := f.materials.Create(ctx, "c1", MaterialInput{
		Title:    "Broken",
		Type:     "markdown",
		Sections: []SectionInput{{Title: ""}},
	}); apierr.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("untitled section: expected 400, got %v", err)
	}
}

func TestUpdateMaterialReplacesFile(t *testing.T) {
	f := newFixture(t)
	f.course(t, "c1", "t1")
	ctx := as("t1", types.RoleTeacher)

	m, err := f.materials.Create(ctx, "c1", MaterialInput{
		Title: "Slides",
		Type:  "pdf",
		File:  &FileUpload{Name: "v1.pdf", Data: []byte("%PDF-1")},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	oldKey := strings.TrimPrefix(*m.PdfURL, stubBase)

	upd, err := f.materials.Update(ctx, m.ID, MaterialUpdate{
		Title: strPtr("Slides v2"),
		File:  &FileUpload{Name: "v2.pdf", Data: []byte("%PDF-2")},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if upd.Title != "Slides v2" || !strings.HasSuffix(*upd.PdfURL, "/v2.pdf") {
		t.Fatalf("unexpected update result %+v", upd)
	}
	if _, ok := f.objects.objects[oldKey]; ok {
		t.Fatalf("stale object %s should be removed", oldKey)
	}

	text, err := f.materials.Create(ctx, "c1", MaterialInput{Title: "Read me", Type: "text", Content: strPtr("hi")})
	if err != nil {
		t.Fatalf("Create text: %v", err)
	}
	if _, err := f.materials.Update(ctx, text.ID, MaterialUpdate{File: &FileUpload{Name: "x.pdf", Data: []byte("%PDF")}}); apierr.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("file on text material: expected 400, got %v", err)
	}
	if _, err := f.materials.Update(ctx, text.ID, MaterialUpdate{Title: strPtr(" ")}); apierr.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("blank title: expected 400, got %v", err)
	}
}

func TestDeleteMaterialRemovesFile(t *testing.T) {
	f := newFixture(t)
	f.course(t, "c1", "t1")
	ctx := as("t1", types.RoleTeacher)

	m, err := f.materials.Create(ctx, "c1", MaterialInput{
		Title: "Slides",
		Type:  "pdf",
		File:  &FileUpload{Name: "deck.pdf", Data: []byte("%PDF")},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.materials.Delete(as("s1", types.RoleStudent), m.ID); apierr.StatusOf(err) != http.StatusForbidden {
		t.Fatalf("student delete: expected 403, got %v", err)
	}
	if err := f.materials.Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(f.objects.objects) != 0 {
		t.Fatalf("objects left behind: %v", f.objects.objects)
	}
	if _, err := f.materials.Get(ctx, m.ID); apierr.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %v", err)
	}
}

func TestMaterialDownloadURL(t *testing.T) {
	f := newFixture(t)
	f.course(t, "c1", "t1")
	ctx := as("t1", types.RoleTeacher)

	pdf, err := f.materials.Create(ctx, "c1", MaterialInput{
		Title: "Slides",
		Type:  "pdf",
		File:  &FileUpload{Name: "deck.pdf", Data: []byte("%PDF")},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	u, err := f.materials.DownloadURL(as("s1", types.RoleStudent), pdf.ID)
	if err != nil {
		t.Fatalf("DownloadURL: %v", err)
	}
	if !strings.HasSuffix(u, "/deck.pdf?sig=1") {
		t.Fatalf("unexpected signed url %q", u)
	}

	text, err := f.materials.Create(ctx, "c1", MaterialInput{Title: "Read me", Type: "text", Content: strPtr("hi")})
	if err != nil {
		t.Fatalf("Create text: %v", err)
	}
	if _, err := f.materials.DownloadURL(ctx, text.ID); apierr.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("text download: expected 404, got %v", err)
	}
}
