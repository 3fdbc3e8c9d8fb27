package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/yungbote/lms-backend/internal/data/store"
	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/platform/apierr"
	"github.com/yungbote/lms-backend/internal/platform/ctxutil"
	"github.com/yungbote/lms-backend/internal/platform/logger"
	"github.com/yungbote/lms-backend/internal/platform/storage"
	"github.com/yungbote/lms-backend/internal/services/access"
)

type CourseFilter struct {
	Search    string
	TeacherID string
	Page
}

type CourseInput struct {
	Title       string
	Description string
	TeacherID   string
	Categories  []string
}

type CourseUpdate struct {
	Title       *string
	Description *string
	TeacherID   *string
}

// CourseSummary is a course as listed to clients.
type CourseSummary struct {
	types.Course
	TeacherName     string `json:"teacherName,omitempty"`
	EnrollmentCount int64  `json:"enrollmentCount"`
}

type Participant struct {
	types.User
	EnrolledAt time.Time `json:"enrolledAt"`
}

type CourseService interface {
	List(ctx context.Context, f CourseFilter) ([]CourseSummary, error)
	Get(ctx context.Context, id string) (*CourseSummary, error)
	Create(ctx context.Context, in CourseInput) (*types.Course, error)
	Update(ctx context.Context, id string, in CourseUpdate) (*types.Course, error)
	Delete(ctx context.Context, id string) error
	Participants(ctx context.Context, id string) ([]Participant, error)
	TeacherCourses(ctx context.Context) ([]CourseSummary, error)
}

type courseService struct {
	log     *logger.Logger
	st      store.Store
	access  access.Engine
	objects ObjectStore
}

func NewCourseService(baseLog *logger.Logger, st store.Store, engine access.Engine, objects ObjectStore) CourseService {
	return &courseService{
		log:     baseLog.With("service", "CourseService"),
		st:      st,
		access:  engine,
		objects: objects,
	}
}

// List returns the courses the caller may see, newest first.
func (cs *courseService) List(ctx context.Context, f CourseFilter) ([]CourseSummary, error) {
	p := ctxutil.GetPrincipal(ctx)
	if p == nil {
		return nil, apierr.Unauthorized("authentication required")
	}
	where := store.Where{}
	if f.TeacherID != "" {
		where["teacherId"] = f.TeacherID
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where[store.OR] = []store.Where{
			{"title": store.Contains(s)},
			{"description": store.Contains(s)},
		}
	}
	q := store.Query{
		Where:   where,
		OrderBy: []store.Order{{Field: "createdAt", Desc: true}, {Field: "id"}},
	}
	// Privileged roles see every row, so the store can page. Everyone else
	// is paged after filtering, otherwise hidden courses would eat the page.
	if p.Role.Privileged() {
		q.Take, q.Skip = f.Take, f.Skip
	}
	courses, err := cs.st.Courses().FindMany(ctx, q)
	if err != nil {
		return nil, apierr.Backend("list courses", err)
	}
	visible, err := cs.access.FilterCoursesByAccess(ctx, courses, p.UserID, p.Role)
	if err != nil {
		return nil, err
	}
	if !p.Role.Privileged() {
		visible = pageOf(visible, f.Page)
	}
	return cs.summarize(ctx, visible)
}

func pageOf[T any](rows []T, pg Page) []T {
	from, to, bounded := store.Range(pg.Take, pg.Skip)
	if from >= len(rows) {
		return rows[:0]
	}
	end := len(rows)
	if bounded && to+1 < end {
		end = to + 1
	}
	return rows[from:end]
}

func (cs *courseService) Get(ctx context.Context, id string) (*CourseSummary, error) {
	course, err := cs.access.EnsureCourseAccess(ctx, ctxutil.GetPrincipal(ctx), id)
	if err != nil {
		return nil, err
	}
	out, err := cs.summarize(ctx, []types.Course{*course})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (cs *courseService) TeacherCourses(ctx context.Context) ([]CourseSummary, error) {
	p := ctxutil.GetPrincipal(ctx)
	if err := EnsureRole(p, types.RoleTeacher, types.RoleAdmin); err != nil {
		return nil, err
	}
	courses, err := cs.st.Courses().FindMany(ctx, store.Query{
		Where:   store.Where{"teacherId": p.UserID},
		OrderBy: []store.Order{{Field: "createdAt", Desc: true}, {Field: "id"}},
	})
	if err != nil {
		return nil, apierr.Backend("list teacher courses", err)
	}
	return cs.summarize(ctx, courses)
}

// summarize attaches teacher names and enrollment counts with one grouped
// count instead of a count per course.
func (cs *courseService) summarize(ctx context.Context, courses []types.Course) ([]CourseSummary, error) {
	out := make([]CourseSummary, 0, len(courses))
	if len(courses) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(courses))
	teacherIDs := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
		teacherIDs = append(teacherIDs, c.TeacherID)
	}
	counts, err := cs.st.Enrollments().GroupByCount(ctx, "courseId", store.Where{"courseId": store.In(ids)})
	if err != nil {
		return nil, apierr.Backend("count enrollments", err)
	}
	teachers, err := cs.st.Users().FindMany(ctx, store.Query{
		Where:  store.Where{"id": store.In(uniqueStrings(teacherIDs))},
		Select: map[string]any{"id": true, "name": true},
	})
	if err != nil {
		return nil, apierr.Backend("load teachers", err)
	}
	names := make(map[string]string, len(teachers))
	for _, t := range teachers {
		names[t.ID] = t.Name
	}
	for _, c := range courses {
		out = append(out, CourseSummary{
			Course:          c,
			TeacherName:     names[c.TeacherID],
			EnrollmentCount: counts[c.ID],
		})
	}
	return out, nil
}

// Create makes the calling teacher the owner. Admins may name another owner.
func (cs *courseService) Create(ctx context.Context, in CourseInput) (*types.Course, error) {
	p := ctxutil.GetPrincipal(ctx)
	if err := EnsureRole(p, types.RoleTeacher, types.RoleAdmin); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apierr.Validation("title is required")
	}
	owner := p.UserID
	if p.Role == types.RoleAdmin && strings.TrimSpace(in.TeacherID) != "" {
		owner = strings.TrimSpace(in.TeacherID)
		if err := cs.ensureCanOwn(ctx, owner); err != nil {
			return nil, err
		}
	}
	cats := uniqueStrings(in.Categories)
	if len(cats) > 0 {
		n, err := cs.st.Categories().Count(ctx, store.Where{"id": store.In(cats)})
		if err != nil {
			return nil, apierr.Backend("check categories", err)
		}
		if int(n) != len(cats) {
			return nil, apierr.Validation("one or more categories do not exist")
		}
	}

	now := nowUTC()
	course := &types.Course{
		ID:          newID(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		TeacherID:   owner,
		Categories:  pq.StringArray(cats),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := cs.st.Courses().Create(ctx, course); err != nil {
		return nil, apierr.Backend("create course", err)
	}
	cs.log.Info("Course created", "course_id", course.ID, "teacher_id", owner)
	return course, nil
}

func (cs *courseService) Update(ctx context.Context, id string, in CourseUpdate) (*types.Course, error) {
	p := ctxutil.GetPrincipal(ctx)
	if _, err := cs.access.EnsureTeacherOwnsCourse(ctx, p, id); err != nil {
		return nil, err
	}
	patch := store.Patch{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apierr.Validation("title cannot be empty")
		}
		patch["title"] = title
	}
	if in.Description != nil {
		patch["description"] = strings.TrimSpace(*in.Description)
	}
	if in.TeacherID != nil {
		if p.Role != types.RoleAdmin {
			return nil, apierr.Forbidden("only an admin can change the course owner")
		}
		owner := strings.TrimSpace(*in.TeacherID)
		if err := cs.ensureCanOwn(ctx, owner); err != nil {
			return nil, err
		}
		patch["teacherId"] = owner
	}
	if len(patch) == 0 {
		return nil, apierr.Validation("nothing to update")
	}
	patch["updatedAt"] = nowUTC()
	course, err := cs.st.Courses().Update(ctx, store.Where{"id": id}, patch)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apierr.NotFound("course %s not found", id)
	}
	if err != nil {
		return nil, apierr.Backend("update course", err)
	}
	return course, nil
}

// Delete removes the course and everything hanging off it, then cleans up
// stored files. Storage failures are logged and do not fail the call.
func (cs *courseService) Delete(ctx context.Context, id string) error {
	if _, err := cs.access.EnsureTeacherOwnsCourse(ctx, ctxutil.GetPrincipal(ctx), id); err != nil {
		return err
	}
	materials, err := cs.st.Materials().FindMany(ctx, store.Query{
		Where:  store.Where{"courseId": id},
		Select: map[string]any{"id": true, "pdfUrl": true},
	})
	if err != nil {
		return apierr.Backend("load course materials", err)
	}
	materialIDs := make([]string, 0, len(materials))
	var keys []string
	for _, m := range materials {
		materialIDs = append(materialIDs, m.ID)
		if m.PdfURL != nil && cs.objects != nil {
			if key, ok := cs.objects.ExtractFileNameFromURL(*m.PdfURL); ok {
				keys = append(keys, key)
			}
		}
	}

	byCourse := store.Where{"courseId": id}
	steps := []struct {
		name string
		run  func() (int64, error)
	}{
		{"material_sections", func() (int64, error) {
			if len(materialIDs) == 0 {
				return 0, nil
			}
			return cs.st.MaterialSections().DeleteMany(ctx, store.Where{"materialId": store.In(materialIDs)})
		}},
		{"progress", func() (int64, error) { return cs.st.Progress().DeleteMany(ctx, byCourse) }},
		{"course_ratings", func() (int64, error) { return cs.st.CourseRatings().DeleteMany(ctx, byCourse) }},
		{"enrollments", func() (int64, error) { return cs.st.Enrollments().DeleteMany(ctx, byCourse) }},
		{"materials", func() (int64, error) { return cs.st.Materials().DeleteMany(ctx, byCourse) }},
	}
	for _, s := range steps {
		if _, err := s.run(); err != nil {
			return apierr.Backend("delete "+s.name, err)
		}
	}
	if err := cs.st.Courses().Delete(ctx, store.Where{"id": id}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apierr.NotFound("course %s not found", id)
		}
		return apierr.Backend("delete course", err)
	}

	if cs.objects != nil {
		if err := cs.objects.DeleteMany(ctx, keys); err != nil {
			cs.log.Warn("Failed to delete course files", "course_id", id, "files", len(keys), "error", err)
		}
		if err := cs.objects.DeletePrefix(ctx, storage.CoursePrefix(id)); err != nil {
			cs.log.Warn("Failed to delete course storage prefix", "course_id", id, "error", err)
		}
	}
	cs.log.Info("Course deleted", "course_id", id, "materials", len(materialIDs))
	return nil
}

// Participants is open to admins and every teacher, owner or not.
func (cs *courseService) Participants(ctx context.Context, id string) ([]Participant, error) {
	p := ctxutil.GetPrincipal(ctx)
	if err := EnsureRole(p, types.RoleAdmin, types.RoleTeacher); err != nil {
		return nil, err
	}
	if _, err := cs.access.EnsureCourseAccess(ctx, p, id); err != nil {
		return nil, err
	}
	enrollments, err := cs.st.Enrollments().FindMany(ctx, store.Query{
		Where:   store.Where{"courseId": id},
		OrderBy: []store.Order{{Field: "enrolledAt"}, {Field: "id"}},
	})
	if err != nil {
		return nil, apierr.Backend("list enrollments", err)
	}
	out := make([]Participant, 0, len(enrollments))
	if len(enrollments) == 0 {
		return out, nil
	}
	userIDs := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		userIDs = append(userIDs, e.UserID)
	}
	users, err := cs.st.Users().FindMany(ctx, store.Query{Where: store.Where{"id": store.In(userIDs)}})
	if err != nil {
		return nil, apierr.Backend("load participants", err)
	}
	byID := make(map[string]types.User, len(users))
	for _, u := range users {
		byID[u.ID] = u.Public()
	}
	for _, e := range enrollments {
		if u, ok := byID[e.UserID]; ok {
			out = append(out, Participant{User: u, EnrolledAt: e.EnrolledAt})
		}
	}
	return out, nil
}

func (cs *courseService) ensureCanOwn(ctx context.Context, userID string) error {
	u, err := cs.st.Users().FindUnique(ctx, store.Where{"id": userID})
	if err != nil {
		return apierr.Backend("load owner", err)
	}
	if u == nil {
		return apierr.NotFound("user %s not found", userID)
	}
	if u.Role != types.RoleTeacher && u.Role != types.RoleAdmin {
		return apierr.Validation("course owner must be a teacher or admin")
	}
	return nil
}
