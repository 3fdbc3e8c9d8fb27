// Package access decides which courses, and through them which materials, a
// principal may see.
//
// Admins and teachers see everything. Students see public courses (no
// categories) and courses sharing at least one category with them. When the
// category tables have not been provisioned in the backing store the whole
// category system counts as disabled and access is allowed.
package access

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/lms-backend/internal/data/store"
	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/platform/apierr"
	"github.com/yungbote/lms-backend/internal/platform/ctxutil"
	"github.com/yungbote/lms-backend/internal/platform/logger"
)

// FeatureState says whether a category lookup could run at all.
type FeatureState int

const (
	FeatureProvisioned FeatureState = iota
	// FeatureNotProvisioned means the relation behind the lookup is missing.
	FeatureNotProvisioned
)

func (s FeatureState) String() string {
	if s == FeatureNotProvisioned {
		return "not_provisioned"
	}
	return "provisioned"
}

// featureStateOf is the single place a backend error becomes a soft signal.
func featureStateOf(err error) (FeatureState, error) {
	if err == nil {
		return FeatureProvisioned, nil
	}
	if store.IsMissingRelation(err) {
		return FeatureNotProvisioned, nil
	}
	return FeatureProvisioned, err
}

type Request struct {
	UserID   string
	Role     types.Role
	CourseID string
	// TeacherID is the course owner when the caller already knows it. The
	// decision does not depend on it.
	TeacherID string
}

type Engine interface {
	IsCourseAccessibleByUser(ctx context.Context, req Request) (bool, error)
	FilterCoursesByAccess(ctx context.Context, courses []types.Course, userID string, role types.Role) ([]types.Course, error)

	EnsureCourseAccess(ctx context.Context, p *ctxutil.Principal, courseID string) (*types.Course, error)
	EnsureMaterialAccess(ctx context.Context, p *ctxutil.Principal, materialID string) (*types.Material, *types.Course, error)
	EnsureTeacherOwnsCourse(ctx context.Context, p *ctxutil.Principal, courseID string) (*types.Course, error)

	CourseCategories(ctx context.Context, courseID string) ([]string, FeatureState, error)
	UserCategories(ctx context.Context, userID string) ([]string, FeatureState, error)
}

type engine struct {
	log         *logger.Logger
	st          store.Store
	concurrency int
}

func NewEngine(baseLog *logger.Logger, st store.Store, concurrency int) Engine {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &engine{
		log:         baseLog.With("service", "AccessEngine"),
		st:          st,
		concurrency: concurrency,
	}
}

// CourseCategories returns a NotFound error when the course does not exist,
// which is distinct from a course with an empty category set.
func (e *engine) CourseCategories(ctx context.Context, courseID string) ([]string, FeatureState, error) {
	course, err := e.st.Courses().FindFirst(ctx, store.Query{
		Where:  store.Where{"id": courseID},
		Select: map[string]any{"id": true, "categories": true},
	})
	if state, err := featureStateOf(err); err != nil || state == FeatureNotProvisioned {
		return nil, state, err
	}
	if course == nil {
		return nil, FeatureProvisioned, apierr.NotFound("course %s not found", courseID)
	}
	return []string(course.Categories), FeatureProvisioned, nil
}

func (e *engine) UserCategories(ctx context.Context, userID string) ([]string, FeatureState, error) {
	rows, err := e.st.UserCategories().FindMany(ctx, store.Query{
		Where:  store.Where{"userId": userID},
		Select: map[string]any{"categoryId": true},
	})
	if state, err := featureStateOf(err); err != nil || state == FeatureNotProvisioned {
		return nil, state, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.CategoryID)
	}
	return out, FeatureProvisioned, nil
}

func (e *engine) IsCourseAccessibleByUser(ctx context.Context, req Request) (bool, error) {
	if req.Role.Privileged() {
		return true, nil
	}

	courseCats, state, err := e.CourseCategories(ctx, req.CourseID)
	if err != nil {
		return false, err
	}
	if state == FeatureNotProvisioned {
		e.log.Debug("Course categories not provisioned, allowing", "course_id", req.CourseID)
		return true, nil
	}
	return e.allowedByCategories(ctx, req, courseCats)
}

// allowedByCategories finishes a student decision once the course's category
// set is known.
func (e *engine) allowedByCategories(ctx context.Context, req Request, courseCats []string) (bool, error) {
	if len(courseCats) == 0 {
		return true, nil
	}

	userCats, state, err := e.UserCategories(ctx, req.UserID)
	if err != nil {
		return false, err
	}
	if state == FeatureNotProvisioned {
		e.log.Debug("User categories not provisioned, allowing", "course_id", req.CourseID)
		return true, nil
	}
	return intersects(userCats, courseCats), nil
}

// FilterCoursesByAccess keeps the courses the principal may see, in their
// original order. Any backend error fails the whole filter.
func (e *engine) FilterCoursesByAccess(ctx context.Context, courses []types.Course, userID string, role types.Role) ([]types.Course, error) {
	if role.Privileged() || len(courses) == 0 {
		return courses, nil
	}

	keep := make([]bool, len(courses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := range courses {
		i := i
		g.Go(func() error {
			ok, err := e.IsCourseAccessibleByUser(gctx, Request{
				UserID:    userID,
				Role:      role,
				CourseID:  courses[i].ID,
				TeacherID: courses[i].TeacherID,
			})
			if err != nil {
				return fmt.Errorf("access check for course %s: %w", courses[i].ID, err)
			}
			keep[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]types.Course, 0, len(courses))
	for i, c := range courses {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (e *engine) loadCourse(ctx context.Context, courseID string) (*types.Course, error) {
	course, err := e.st.Courses().FindUnique(ctx, store.Where{"id": courseID})
	if err != nil {
		return nil, apierr.Backend("load course", err)
	}
	if course == nil {
		return nil, apierr.NotFound("course %s not found", courseID)
	}
	return course, nil
}

func (e *engine) EnsureCourseAccess(ctx context.Context, p *ctxutil.Principal, courseID string) (*types.Course, error) {
	if p == nil {
		return nil, apierr.Unauthorized("authentication required")
	}
	course, err := e.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if p.Role.Privileged() {
		return course, nil
	}
	// The loaded row already carries the category set.
	ok, err := e.allowedByCategories(ctx, Request{
		UserID:    p.UserID,
		Role:      p.Role,
		CourseID:  course.ID,
		TeacherID: course.TeacherID,
	}, []string(course.Categories))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierr.Forbidden("you do not have access to this course")
	}
	return course, nil
}

// EnsureMaterialAccess always goes back to the parent course, so a material
// is never reachable when its course is not.
func (e *engine) EnsureMaterialAccess(ctx context.Context, p *ctxutil.Principal, materialID string) (*types.Material, *types.Course, error) {
	if p == nil {
		return nil, nil, apierr.Unauthorized("authentication required")
	}
	mat, err := e.st.Materials().FindUnique(ctx, store.Where{"id": materialID})
	if err != nil {
		return nil, nil, apierr.Backend("load material", err)
	}
	if mat == nil {
		return nil, nil, apierr.NotFound("material %s not found", materialID)
	}
	course, err := e.EnsureCourseAccess(ctx, p, mat.CourseID)
	if err != nil {
		return nil, nil, err
	}
	return mat, course, nil
}

// EnsureTeacherOwnsCourse lets admins through and restricts teachers to the
// courses they own. Students are always refused.
func (e *engine) EnsureTeacherOwnsCourse(ctx context.Context, p *ctxutil.Principal, courseID string) (*types.Course, error) {
	if p == nil {
		return nil, apierr.Unauthorized("authentication required")
	}
	course, err := e.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	switch {
	case p.Role == types.RoleAdmin:
		return course, nil
	case p.Role == types.RoleTeacher && course.TeacherID == p.UserID:
		return course, nil
	default:
		return nil, apierr.Forbidden("only the owning teacher or an admin can modify this course")
	}
}

func intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
