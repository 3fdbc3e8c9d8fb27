package services

import (
	"context"
	"errors"
	"strings"

	"github.com/yungbote/lms-backend/internal/data/store"
	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/platform/apierr"
	"github.com/yungbote/lms-backend/internal/platform/ctxutil"
	"github.com/yungbote/lms-backend/internal/platform/logger"
)

// ErrNoAdminForReassignment refuses a teacher deletion that would orphan courses.
var ErrNoAdminForReassignment = errors.New("cannot delete teacher: no admin exists to take over their courses")

type UserFilter struct {
	Search string
	Role   types.Role
	Page
}

type CreateUserInput struct {
	Name       string
	Email      string
	Password   string
	Role       types.Role
	Provinsi   string
	Categories []string
}

type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
	Role     *types.Role
	Provinsi *string
}

// UserDetail is a user with its category ids resolved to names.
type UserDetail struct {
	types.User
	CategoryNames []string `json:"categoryNames"`
}

type UserService interface {
	List(ctx context.Context, f UserFilter) ([]types.User, int64, error)
	Get(ctx context.Context, id string) (*UserDetail, error)
	Me(ctx context.Context) (*UserDetail, error)
	Create(ctx context.Context, in CreateUserInput) (*types.User, error)
	Update(ctx context.Context, id string, in UpdateUserInput) (*types.User, error)
	Delete(ctx context.Context, id string) error
	BulkDelete(ctx context.Context, ids []string) (int64, error)
}

type userService struct {
	log        *logger.Logger
	st         store.Store
	categories CategoryService
}

func NewUserService(baseLog *logger.Logger, st store.Store, categories CategoryService) UserService {
	return &userService{
		log:        baseLog.With("service", "UserService"),
		st:         st,
		categories: categories,
	}
}

func (us *userService) List(ctx context.Context, f UserFilter) ([]types.User, int64, error) {
	where := store.Where{}
	if f.Role != "" {
		where["role"] = string(f.Role)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where[store.OR] = []store.Where{
			{"name": store.Contains(s)},
			{"email": store.Contains(s)},
		}
	}
	total, err := us.st.Users().Count(ctx, where)
	if err != nil {
		return nil, 0, apierr.Backend("count users", err)
	}
	rows, err := us.st.Users().FindMany(ctx, store.Query{
		Where:   where,
		OrderBy: []store.Order{{Field: "createdAt", Desc: true}, {Field: "id"}},
		Take:    f.Take,
		Skip:    f.Skip,
	})
	if err != nil {
		return nil, 0, apierr.Backend("list users", err)
	}
	out := make([]types.User, 0, len(rows))
	for _, u := range rows {
		out = append(out, u.Public())
	}
	return out, total, nil
}

func (us *userService) Get(ctx context.Context, id string) (*UserDetail, error) {
	user, err := us.st.Users().FindUnique(ctx, store.Where{"id": id})
	if err != nil {
		return nil, apierr.Backend("load user", err)
	}
	if user == nil {
		return nil, apierr.NotFound("user %s not found", id)
	}
	catIDs, err := us.categories.UserCategoryIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	names, err := us.categories.ResolveNames(ctx, catIDs)
	if err != nil {
		return nil, err
	}
	pub := user.Public()
	pub.Categories = catIDs
	return &UserDetail{User: pub, CategoryNames: names}, nil
}

func (us *userService) Me(ctx context.Context) (*UserDetail, error) {
	p := ctxutil.GetPrincipal(ctx)
	if p == nil {
		return nil, apierr.Unauthorized("authentication required")
	}
	return us.Get(ctx, p.UserID)
}

func (us *userService) Create(ctx context.Context, in CreateUserInput) (*types.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" {
		return nil, apierr.Validation("name is required")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(in.Password) < 6 {
		return nil, apierr.Validation("password must be at least 6 characters")
	}
	role := in.Role
	if role == "" {
		role = types.RoleStudent
	}
	if _, ok := types.ParseRole(string(role)); !ok {
		return nil, apierr.Validation("invalid role %q", role)
	}
	if err := us.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := nowUTC()
	user := &types.User{
		ID:        newID(),
		Role:      role,
		Name:      name,
		Email:     email,
		Password:  hash,
		Provinsi:  strings.TrimSpace(in.Provinsi),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := us.st.Users().Create(ctx, user); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, apierr.Validation("email %s is already registered", email)
		}
		return nil, apierr.Backend("create user", err)
	}
	if cats := uniqueStrings(in.Categories); len(cats) > 0 {
		if err := us.categories.SetUserCategories(ctx, user.ID, cats); err != nil {
			return nil, err
		}
		user.Categories = cats
	}
	us.log.Info("User created", "user_id", user.ID, "role", user.Role)
	pub := user.Public()
	return &pub, nil
}

func (us *userService) Update(ctx context.Context, id string, in UpdateUserInput) (*types.User, error) {
	existing, err := us.st.Users().FindUnique(ctx, store.Where{"id": id})
	if err != nil {
		return nil, apierr.Backend("load user", err)
	}
	if existing == nil {
		return nil, apierr.NotFound("user %s not found", id)
	}

	patch := store.Patch{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apierr.Validation("name cannot be empty")
		}
		patch["name"] = name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		if email != existing.Email {
			if err := us.ensureEmailFree(ctx, email, id); err != nil {
				return nil, err
			}
			patch["email"] = email
		}
	}
	if in.Password != nil && *in.Password != "" {
		if len(*in.Password) < 6 {
			return nil, apierr.Validation("password must be at least 6 characters")
		}
		hash, err := hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		patch["password"] = hash
	}
	if in.Role != nil {
		role, ok := types.ParseRole(string(*in.Role))
		if !ok {
			return nil, apierr.Validation("invalid role %q", *in.Role)
		}
		if existing.Role == types.RoleTeacher && role != types.RoleTeacher {
			// demoting a teacher hands their courses over first
			if err := us.reassignCourses(ctx, []string{id}); err != nil {
				return nil, err
			}
		}
		patch["role"] = string(role)
	}
	if in.Provinsi != nil {
		patch["provinsi"] = strings.TrimSpace(*in.Provinsi)
	}
	if len(patch) == 0 {
		pub := existing.Public()
		return &pub, nil
	}
	patch["updatedAt"] = nowUTC()

	updated, err := us.st.Users().Update(ctx, store.Where{"id": id}, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierr.NotFound("user %s not found", id)
		}
		return nil, apierr.Backend("update user", err)
	}
	pub := updated.Public()
	return &pub, nil
}

// Delete removes one user. Courses of a teacher move to an admin first; with
// no admin available the deletion is refused and nothing changes.
func (us *userService) Delete(ctx context.Context, id string) error {
	if p := ctxutil.GetPrincipal(ctx); p != nil && p.UserID == id {
		return apierr.Validation("you cannot delete your own account")
	}
	user, err := us.st.Users().FindUnique(ctx, store.Where{"id": id})
	if err != nil {
		return apierr.Backend("load user", err)
	}
	if user == nil {
		return apierr.NotFound("user %s not found", id)
	}
	if user.Role == types.RoleTeacher {
		if err := us.reassignCourses(ctx, []string{id}); err != nil {
			return err
		}
	}
	if err := us.st.Users().Delete(ctx, store.Where{"id": id}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apierr.NotFound("user %s not found", id)
		}
		return apierr.Backend("delete user", err)
	}
	us.cleanupUserRows(ctx, []string{id})
	us.log.Info("User deleted", "user_id", id, "role", user.Role)
	return nil
}

// BulkDelete looks up one admin and reassigns every affected course in one
// sweep before any user is removed.
func (us *userService) BulkDelete(ctx context.Context, ids []string) (int64, error) {
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return 0, apierr.Validation("no user ids given")
	}
	if p := ctxutil.GetPrincipal(ctx); p != nil {
		for _, id := range ids {
			if id == p.UserID {
				return 0, apierr.Validation("you cannot delete your own account")
			}
		}
	}
	users, err := us.st.Users().FindMany(ctx, store.Query{
		Where:  store.Where{"id": store.In(ids)},
		Select: map[string]any{"id": true, "role": true},
	})
	if err != nil {
		return 0, apierr.Backend("load users", err)
	}
	var teachers []string
	for _, u := range users {
		if u.Role == types.RoleTeacher {
			teachers = append(teachers, u.ID)
		}
	}
	if len(teachers) > 0 {
		if err := us.reassignCourses(ctx, teachers, ids...); err != nil {
			return 0, err
		}
	}
	n, err := us.st.Users().DeleteMany(ctx, store.Where{"id": store.In(ids)})
	if err != nil {
		return 0, apierr.Backend("delete users", err)
	}
	us.cleanupUserRows(ctx, ids)
	us.log.Info("Users bulk deleted", "requested", len(ids), "deleted", n, "teachers", len(teachers))
	return n, nil
}

// reassignCourses hands every course owned by teacherIDs to one admin that is
// not itself about to be deleted.
func (us *userService) reassignCourses(ctx context.Context, teacherIDs []string, excluded ...string) error {
	skip := make(map[string]struct{}, len(excluded)+len(teacherIDs))
	for _, id := range excluded {
		skip[id] = struct{}{}
	}
	for _, id := range teacherIDs {
		skip[id] = struct{}{}
	}
	admins, err := us.st.Users().FindMany(ctx, store.Query{
		Where:   store.Where{"role": string(types.RoleAdmin)},
		Select:  map[string]any{"id": true},
		OrderBy: []store.Order{{Field: "createdAt"}, {Field: "id"}},
	})
	if err != nil {
		return apierr.Backend("find admin", err)
	}
	adminID := ""
	for _, a := range admins {
		if _, gone := skip[a.ID]; !gone {
			adminID = a.ID
			break
		}
	}
	if adminID == "" {
		return apierr.Conflict("%s", ErrNoAdminForReassignment.Error())
	}
	n, err := us.st.Courses().UpdateMany(ctx,
		store.Where{"teacherId": store.In(teacherIDs)},
		store.Patch{"teacherId": adminID, "updatedAt": nowUTC()},
	)
	if err != nil {
		return apierr.Backend("reassign courses", err)
	}
	if n > 0 {
		us.log.Info("Courses reassigned to admin", "courses", n, "admin_id", adminID, "teachers", len(teacherIDs))
	}
	return nil
}

// cleanupUserRows removes rows keyed by deleted users. Failures are logged;
// the users are already gone.
func (us *userService) cleanupUserRows(ctx context.Context, ids []string) {
	where := store.Where{"userId": store.In(ids)}
	steps := []struct {
		name string
		run  func() (int64, error)
	}{
		{"user_categories", func() (int64, error) { return us.st.UserCategories().DeleteMany(ctx, where) }},
		{"enrollments", func() (int64, error) { return us.st.Enrollments().DeleteMany(ctx, where) }},
		{"progress", func() (int64, error) { return us.st.Progress().DeleteMany(ctx, where) }},
		{"course_ratings", func() (int64, error) { return us.st.CourseRatings().DeleteMany(ctx, where) }},
	}
	for _, s := range steps {
		if _, err := s.run(); err != nil && !store.IsMissingRelation(err) {
			us.log.Warn("Failed to clean up rows of deleted users", "table", s.name, "users", len(ids), "error", err)
		}
	}
}

func (us *userService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := us.st.Users().FindUnique(ctx, store.Where{"email": email})
	if err != nil {
		return apierr.Backend("check email", err)
	}
	if existing != nil && existing.ID != selfID {
		return apierr.Validation("email %s is already registered", email)
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return apierr.Validation("email is required")
	}
	if err := validate.Var(email, "required,email"); err != nil {
		return apierr.Validation("invalid email %q", email)
	}
	return nil
}
