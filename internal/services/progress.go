package services

import (
	"context"
	"math"

	"github.com/yungbote/lms-backend/internal/data/store"
	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/platform/apierr"
	"github.com/yungbote/lms-backend/internal/platform/ctxutil"
	"github.com/yungbote/lms-backend/internal/platform/logger"
	"github.com/yungbote/lms-backend/internal/services/access"
)

type CourseProgress struct {
	CourseID       string  `json:"courseId"`
	TotalMaterials int64   `json:"totalMaterials"`
	Completed      int64   `json:"completed"`
	Percent        float64 `json:"percent"`
}

type ProgressService interface {
	Mark(ctx context.Context, materialID string, status types.ProgressStatus) (*types.Progress, error)
	CourseProgress(ctx context.Context, courseID string) (*CourseProgress, error)
}

type progressService struct {
	log    *logger.Logger
	st     store.Store
	access access.Engine
}

func NewProgressService(baseLog *logger.Logger, st store.Store, engine access.Engine) ProgressService {
	return &progressService{
		log:    baseLog.With("service", "ProgressService"),
		st:     st,
		access: engine,
	}
}

// Mark records the caller's status for a material. One row exists per
// (user, material); later calls overwrite the status.
func (ps *progressService) Mark(ctx context.Context, materialID string, status types.ProgressStatus) (*types.Progress, error) {
	if !status.Valid() {
		return nil, apierr.Validation("invalid progress status %q", status)
	}
	p := ctxutil.GetPrincipal(ctx)
	mat, _, err := ps.access.EnsureMaterialAccess(ctx, p, materialID)
	if err != nil {
		return nil, err
	}
	now := nowUTC()
	row := &types.Progress{
		ID:         newID(),
		UserID:     p.UserID,
		MaterialID: mat.ID,
		CourseID:   mat.CourseID,
		Status:     status,
		UpdatedAt:  now,
	}
	err = ps.st.Progress().Upsert(ctx, row, []string{"userId", "materialId"}, store.Patch{
		"status":    string(status),
		"updatedAt": now,
	})
	if err != nil {
		return nil, apierr.Backend("save progress", err)
	}
	return row, nil
}

func (ps *progressService) CourseProgress(ctx context.Context, courseID string) (*CourseProgress, error) {
	p := ctxutil.GetPrincipal(ctx)
	if _, err := ps.access.EnsureCourseAccess(ctx, p, courseID); err != nil {
		return nil, err
	}
	total, err := ps.st.Materials().Count(ctx, store.Where{"courseId": courseID})
	if err != nil {
		return nil, apierr.Backend("count materials", err)
	}
	done, err := ps.st.Progress().Count(ctx, store.Where{
		"userId":   p.UserID,
		"courseId": courseID,
		"status":   string(types.ProgressCompleted),
	})
	if err != nil {
		return nil, apierr.Backend("count progress", err)
	}
	out := &CourseProgress{CourseID: courseID, TotalMaterials: total, Completed: done}
	if total > 0 {
		out.Percent = math.Round(float64(done)/float64(total)*1000) / 10
	}
	return out, nil
}
