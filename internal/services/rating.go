package services

import (
	"context"
	"math"
	"strings"

	"github.com/yungbote/lms-backend/internal/data/store"
	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/platform/apierr"
	"github.com/yungbote/lms-backend/internal/platform/ctxutil"
	"github.com/yungbote/lms-backend/internal/platform/logger"
	"github.com/yungbote/lms-backend/internal/services/access"
)

type RatingView struct {
	types.CourseRating
	UserName string `json:"userName,omitempty"`
}

type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type RatingService interface {
	Rate(ctx context.Context, courseID string, rating int, review *string) (*types.CourseRating, error)
	List(ctx context.Context, courseID string) ([]RatingView, RatingSummary, error)
}

type ratingService struct {
	log         *logger.Logger
	st          store.Store
	access      access.Engine
	enrollments EnrollmentService
}

func NewRatingService(baseLog *logger.Logger, st store.Store, engine access.Engine, enrollments EnrollmentService) RatingService {
	return &ratingService{
		log:         baseLog.With("service", "RatingService"),
		st:          st,
		access:      engine,
		enrollments: enrollments,
	}
}

// Rate stores one rating per (user, course). Only enrolled users may rate,
// whatever their role.
func (rs *ratingService) Rate(ctx context.Context, courseID string, rating int, review *string) (*types.CourseRating, error) {
	if rating < 1 || rating > 5 {
		return nil, apierr.Validation("rating must be between 1 and 5")
	}
	p := ctxutil.GetPrincipal(ctx)
	if _, err := rs.access.EnsureCourseAccess(ctx, p, courseID); err != nil {
		return nil, err
	}
	enrolled, err := rs.enrollments.IsEnrolled(ctx, p.UserID, courseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, apierr.Forbidden("only enrolled users can rate this course")
	}

	var text *string
	if review != nil {
		if t := strings.TrimSpace(*review); t != "" {
			text = &t
		}
	}
	now := nowUTC()
	row := &types.CourseRating{
		ID:        newID(),
		UserID:    p.UserID,
		CourseID:  courseID,
		Rating:    rating,
		Review:    text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = rs.st.CourseRatings().Upsert(ctx, row, []string{"userId", "courseId"}, store.Patch{
		"rating":    rating,
		"review":    text,
		"updatedAt": now,
	})
	if err != nil {
		return nil, apierr.Backend("save rating", err)
	}
	return row, nil
}

func (rs *ratingService) List(ctx context.Context, courseID string) ([]RatingView, RatingSummary, error) {
	if _, err := rs.access.EnsureCourseAccess(ctx, ctxutil.GetPrincipal(ctx), courseID); err != nil {
		return nil, RatingSummary{}, err
	}
	rows, err := rs.st.CourseRatings().FindMany(ctx, store.Query{
		Where:   store.Where{"courseId": courseID},
		OrderBy: []store.Order{{Field: "updatedAt", Desc: true}, {Field: "id"}},
	})
	if err != nil {
		return nil, RatingSummary{}, apierr.Backend("list ratings", err)
	}
	out := make([]RatingView, 0, len(rows))
	if len(rows) == 0 {
		return out, RatingSummary{}, nil
	}
	userIDs := make([]string, 0, len(rows))
	sum := 0
	for _, r := range rows {
		userIDs = append(userIDs, r.UserID)
		sum += r.Rating
	}
	users, err := rs.st.Users().FindMany(ctx, store.Query{
		Where:  store.Where{"id": store.In(userIDs)},
		Select: map[string]any{"id": true, "name": true},
	})
	if err != nil {
		return nil, RatingSummary{}, apierr.Backend("load raters", err)
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	for _, r := range rows {
		out = append(out, RatingView{CourseRating: r, UserName: names[r.UserID]})
	}
	summary := RatingSummary{
		Average: math.Round(float64(sum)/float64(len(rows))*100) / 100,
		Count:   len(rows),
	}
	return out, summary, nil
}
