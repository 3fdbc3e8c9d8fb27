package services

import (
	"context"
	"errors"
	"sync"

	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/lms-backend/internal/data/store"
	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/platform/apierr"
	"github.com/yungbote/lms-backend/internal/platform/ctxutil"
	"github.com/yungbote/lms-backend/internal/platform/logger"
	"github.com/yungbote/lms-backend/internal/services/access"
)

type CategoryInput struct {
	Name        string
	Description *string
}

type CategoryService interface {
	List(ctx context.Context) ([]types.Category, error)
	Get(ctx context.Context, id string) (*types.Category, error)
	Create(ctx context.Context, in CategoryInput) (*types.Category, error)
	Update(ctx context.Context, id string, in CategoryInput) (*types.Category, error)
	Delete(ctx context.Context, id string) error

	AssignToUsers(ctx context.Context, categoryID string, userIDs []string) (BulkResult, error)
	UnassignFromUsers(ctx context.Context, categoryID string, userIDs []string) (int64, error)
	SetUserCategories(ctx context.Context, userID string, categoryIDs []string) error
	UserCategoryIDs(ctx context.Context, userID string) ([]string, error)
	ResolveNames(ctx context.Context, ids []string) ([]string, error)

	SetCourseCategories(ctx context.Context, courseID string, categoryIDs []string) (*types.Course, error)
}

type categoryService struct {
	log         *logger.Logger
	st          store.Store
	access      access.Engine
	concurrency int
}

func NewCategoryService(baseLog *logger.Logger, st store.Store, engine access.Engine, bulkConcurrency int) CategoryService {
	if bulkConcurrency <= 0 {
		bulkConcurrency = 8
	}
	return &categoryService{
		log:         baseLog.With("service", "CategoryService"),
		st:          st,
		access:      engine,
		concurrency: bulkConcurrency,
	}
}

func (cs *categoryService) List(ctx context.Context) ([]types.Category, error) {
	rows, err := cs.st.Categories().FindMany(ctx, store.Query{
		OrderBy: []store.Order{{Field: "name"}, {Field: "id"}},
	})
	if err != nil {
		return nil, apierr.Backend("list categories", err)
	}
	return rows, nil
}

func (cs *categoryService) Get(ctx context.Context, id string) (*types.Category, error) {
	cat, err := cs.st.Categories().FindUnique(ctx, store.Where{"id": id})
	if err != nil {
		return nil, apierr.Backend("load category", err)
	}
	if cat == nil {
		return nil, apierr.NotFound("category %s not found", id)
	}
	return cat, nil
}

func (cs *categoryService) Create(ctx context.Context, in CategoryInput) (*types.Category, error) {
	name := trimmedPtr(&in.Name)
	if *name == "" {
		return nil, apierr.Validation("name is required")
	}
	now := nowUTC()
	cat := &types.Category{
		ID:          newID(),
		Name:        *name,
		Description: trimmedPtr(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := cs.st.Categories().Create(ctx, cat); err != nil {
		return nil, apierr.Backend("create category", err)
	}
	cs.log.Info("Category created", "category_id", cat.ID)
	return cat, nil
}

func (cs *categoryService) Update(ctx context.Context, id string, in CategoryInput) (*types.Category, error) {
	name := trimmedPtr(&in.Name)
	if *name == "" {
		return nil, apierr.Validation("name is required")
	}
	patch := store.Patch{"name": *name, "updatedAt": nowUTC()}
	if in.Description != nil {
		patch["description"] = *trimmedPtr(in.Description)
	}
	cat, err := cs.st.Categories().Update(ctx, store.Where{"id": id}, patch)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apierr.NotFound("category %s not found", id)
	}
	if err != nil {
		return nil, apierr.Backend("update category", err)
	}
	return cat, nil
}

// Delete leaves category ids on users and courses in place; stale ids are
// skipped when names are resolved.
func (cs *categoryService) Delete(ctx context.Context, id string) error {
	err := cs.st.Categories().Delete(ctx, store.Where{"id": id})
	if errors.Is(err, store.ErrNotFound) {
		return apierr.NotFound("category %s not found", id)
	}
	if err != nil {
		return apierr.Backend("delete category", err)
	}
	cs.log.Info("Category deleted", "category_id", id)
	return nil
}

// AssignToUsers upserts one assignment per user concurrently. Nothing is
// rolled back when some of them fail.
func (cs *categoryService) AssignToUsers(ctx context.Context, categoryID string, userIDs []string) (BulkResult, error) {
	userIDs = uniqueStrings(userIDs)
	if len(userIDs) == 0 {
		return BulkResult{}, apierr.Validation("userIds must not be empty")
	}
	if _, err := cs.Get(ctx, categoryID); err != nil {
		return BulkResult{}, err
	}

	var (
		mu     sync.Mutex
		failed []apierr.ItemError
	)
	var g errgroup.Group
	g.SetLimit(cs.concurrency)
	for _, uid := range userIDs {
		uid := uid
		g.Go(func() error {
			row := &types.UserCategory{
				ID:         newID(),
				UserID:     uid,
				CategoryID: categoryID,
				CreatedAt:  nowUTC(),
			}
			if err := cs.st.UserCategories().Upsert(ctx, row, []string{"userId", "categoryId"}, nil); err != nil {
				mu.Lock()
				failed = append(failed, apierr.ItemError{ID: uid, Err: err.Error()})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	res := BulkResult{Succeeded: len(userIDs) - len(failed), Failed: len(failed)}
	if res.Failed > 0 {
		cs.log.Warn("Category assignment partially failed", "category_id", categoryID, "succeeded", res.Succeeded, "failed", res.Failed)
		return res, &apierr.PartialFailure{Succeeded: res.Succeeded, Failed: res.Failed, Items: failed}
	}
	return res, nil
}

func (cs *categoryService) UnassignFromUsers(ctx context.Context, categoryID string, userIDs []string) (int64, error) {
	userIDs = uniqueStrings(userIDs)
	if len(userIDs) == 0 {
		return 0, apierr.Validation("userIds must not be empty")
	}
	n, err := cs.st.UserCategories().DeleteMany(ctx, store.Where{
		"categoryId": categoryID,
		"userId":     store.In(userIDs),
	})
	if err != nil {
		return 0, apierr.Backend("unassign category", err)
	}
	return n, nil
}

// SetUserCategories replaces the user's assignments with categoryIDs.
func (cs *categoryService) SetUserCategories(ctx context.Context, userID string, categoryIDs []string) error {
	categoryIDs = uniqueStrings(categoryIDs)
	user, err := cs.st.Users().FindUnique(ctx, store.Where{"id": userID})
	if err != nil {
		return apierr.Backend("load user", err)
	}
	if user == nil {
		return apierr.NotFound("user %s not found", userID)
	}
	if err := cs.ensureCategoriesExist(ctx, categoryIDs); err != nil {
		return err
	}
	if _, err := cs.st.UserCategories().DeleteMany(ctx, store.Where{"userId": userID}); err != nil {
		return apierr.Backend("clear user categories", err)
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	now := nowUTC()
	rows := make([]types.UserCategory, 0, len(categoryIDs))
	for _, cid := range categoryIDs {
		rows = append(rows, types.UserCategory{ID: newID(), UserID: userID, CategoryID: cid, CreatedAt: now})
	}
	if _, err := cs.st.UserCategories().CreateMany(ctx, rows); err != nil {
		return apierr.Backend("assign user categories", err)
	}
	return nil
}

func (cs *categoryService) UserCategoryIDs(ctx context.Context, userID string) ([]string, error) {
	ids, state, err := cs.access.UserCategories(ctx, userID)
	if err != nil {
		return nil, apierr.Backend("load user categories", err)
	}
	if state == access.FeatureNotProvisioned {
		return []string{}, nil
	}
	return ids, nil
}

// ResolveNames maps ids to names in the given order. Ids of deleted
// categories are dropped.
func (cs *categoryService) ResolveNames(ctx context.Context, ids []string) ([]string, error) {
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return []string{}, nil
	}
	rows, err := cs.st.Categories().FindMany(ctx, store.Query{
		Where:  store.Where{"id": store.In(ids)},
		Select: map[string]any{"id": true, "name": true},
	})
	if err != nil {
		if store.IsMissingRelation(err) {
			return []string{}, nil
		}
		return nil, apierr.Backend("resolve category names", err)
	}
	byID := make(map[string]string, len(rows))
	for _, r := range rows {
		byID[r.ID] = r.Name
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := byID[id]; ok {
			out = append(out, name)
		}
	}
	return out, nil
}

// SetCourseCategories is restricted to the owning teacher or an admin.
func (cs *categoryService) SetCourseCategories(ctx context.Context, courseID string, categoryIDs []string) (*types.Course, error) {
	if _, err := cs.access.EnsureTeacherOwnsCourse(ctx, ctxutil.GetPrincipal(ctx), courseID); err != nil {
		return nil, err
	}
	categoryIDs = uniqueStrings(categoryIDs)
	if err := cs.ensureCategoriesExist(ctx, categoryIDs); err != nil {
		return nil, err
	}
	course, err := cs.st.Courses().Update(ctx, store.Where{"id": courseID}, store.Patch{
		"categories": pq.StringArray(categoryIDs),
		"updatedAt":  nowUTC(),
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, apierr.NotFound("course %s not found", courseID)
	}
	if err != nil {
		return nil, apierr.Backend("set course categories", err)
	}
	cs.log.Info("Course categories set", "course_id", courseID, "categories", len(categoryIDs))
	return course, nil
}

func (cs *categoryService) ensureCategoriesExist(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := cs.st.Categories().Count(ctx, store.Where{"id": store.In(ids)})
	if err != nil {
		return apierr.Backend("check categories", err)
	}
	if int(n) != len(ids) {
		return apierr.Validation("one or more categories do not exist")
	}
	return nil
}
