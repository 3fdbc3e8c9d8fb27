package services

import (
	"context"
	"errors"

	"github.com/yungbote/lms-backend/internal/data/store"
	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/platform/apierr"
	"github.com/yungbote/lms-backend/internal/platform/ctxutil"
	"github.com/yungbote/lms-backend/internal/platform/logger"
	"github.com/yungbote/lms-backend/internal/services/access"
)

type EnrolledCourse struct {
	types.Enrollment
	Course types.Course `json:"course"`
}

type EnrollmentService interface {
	// Enroll is idempotent: enrolling twice returns the first enrollment.
	Enroll(ctx context.Context, courseID string) (*types.Enrollment, bool, error)
	Unenroll(ctx context.Context, courseID string) error
	MyEnrollments(ctx context.Context) ([]EnrolledCourse, error)
	IsEnrolled(ctx context.Context, userID, courseID string) (bool, error)
}

type enrollmentService struct {
	log    *logger.Logger
	st     store.Store
	access access.Engine
}

func NewEnrollmentService(baseLog *logger.Logger, st store.Store, engine access.Engine) EnrollmentService {
	return &enrollmentService{
		log:    baseLog.With("service", "EnrollmentService"),
		st:     st,
		access: engine,
	}
}

func (es *enrollmentService) find(ctx context.Context, userID, courseID string) (*types.Enrollment, error) {
	e, err := es.st.Enrollments().FindUnique(ctx, store.Where{"userId": userID, "courseId": courseID})
	if err != nil {
		return nil, apierr.Backend("load enrollment", err)
	}
	return e, nil
}

func (es *enrollmentService) Enroll(ctx context.Context, courseID string) (*types.Enrollment, bool, error) {
	p := ctxutil.GetPrincipal(ctx)
	if _, err := es.access.EnsureCourseAccess(ctx, p, courseID); err != nil {
		return nil, false, err
	}
	existing, err := es.find(ctx, p.UserID, courseID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	e := &types.Enrollment{
		ID:         newID(),
		UserID:     p.UserID,
		CourseID:   courseID,
		EnrolledAt: nowUTC(),
	}
	if err := es.st.Enrollments().Create(ctx, e); err != nil {
		if !store.IsUniqueViolation(err) {
			return nil, false, apierr.Backend("create enrollment", err)
		}
		// a concurrent request won the insert
		existing, ferr := es.find(ctx, p.UserID, courseID)
		if ferr != nil || existing == nil {
			return nil, false, apierr.Backend("create enrollment", err)
		}
		return existing, false, nil
	}
	es.log.Info("User enrolled", "user_id", p.UserID, "course_id", courseID)
	return e, true, nil
}

func (es *enrollmentService) Unenroll(ctx context.Context, courseID string) error {
	p := ctxutil.GetPrincipal(ctx)
	if p == nil {
		return apierr.Unauthorized("authentication required")
	}
	err := es.st.Enrollments().Delete(ctx, store.Where{"userId": p.UserID, "courseId": courseID})
	if errors.Is(err, store.ErrNotFound) {
		return apierr.NotFound("not enrolled in course %s", courseID)
	}
	if err != nil {
		return apierr.Backend("delete enrollment", err)
	}
	return nil
}

func (es *enrollmentService) MyEnrollments(ctx context.Context) ([]EnrolledCourse, error) {
	p := ctxutil.GetPrincipal(ctx)
	if p == nil {
		return nil, apierr.Unauthorized("authentication required")
	}
	rows, err := es.st.Enrollments().FindMany(ctx, store.Query{
		Where:   store.Where{"userId": p.UserID},
		OrderBy: []store.Order{{Field: "enrolledAt", Desc: true}, {Field: "id"}},
	})
	if err != nil {
		return nil, apierr.Backend("list enrollments", err)
	}
	out := make([]EnrolledCourse, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.CourseID)
	}
	courses, err := es.st.Courses().FindMany(ctx, store.Query{Where: store.Where{"id": store.In(ids)}})
	if err != nil {
		return nil, apierr.Backend("load courses", err)
	}
	byID := make(map[string]types.Course, len(courses))
	for _, c := range courses {
		byID[c.ID] = c
	}
	for _, r := range rows {
		if c, ok := byID[r.CourseID]; ok {
			out = append(out, EnrolledCourse{Enrollment: r, Course: c})
		}
	}
	return out, nil
}

func (es *enrollmentService) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	n, err := es.st.Enrollments().Count(ctx, store.Where{"userId": userID, "courseId": courseID})
	if err != nil {
		return false, apierr.Backend("check enrollment", err)
	}
	return n > 0, nil
}
