// Package store is the data access contract shared by every backend. Callers
// speak in logical camelCase field names; each backend translates to its own
// column naming and query dialect.
package store

import (
	"context"
	"errors"

	types "github.com/yungbote/lms-backend/internal/domain"
)

// ErrNotFound is returned by Update and Delete when no row matched. Single-row
// reads never return it; they return a nil row instead.
var ErrNotFound = errors.New("store: record not found")

type Backend string

const (
	BackendGorm      Backend = "gorm"
	BackendPostgREST Backend = "postgrest"
	BackendMemory    Backend = "memory"
)

func IsSupportedBackend(b Backend) bool {
	switch b {
	case BackendGorm, BackendPostgREST, BackendMemory:
		return true
	default:
		return false
	}
}

// Patch holds logical field -> new value for updates and upserts.
type Patch map[string]any

type Order struct {
	Field string
	Desc  bool
}

type Query struct {
	Where   Where
	Select  map[string]any
	OrderBy []Order
	Take    int
	Skip    int
}

type Table[T any] interface {
	FindUnique(ctx context.Context, where Where) (*T, error)
	FindFirst(ctx context.Context, q Query) (*T, error)
	FindMany(ctx context.Context, q Query) ([]T, error)
	Count(ctx context.Context, where Where) (int64, error)
	Create(ctx context.Context, row *T) error
	CreateMany(ctx context.Context, rows []T) (int64, error)
	Update(ctx context.Context, where Where, patch Patch) (*T, error)
	UpdateMany(ctx context.Context, where Where, patch Patch) (int64, error)
	Delete(ctx context.Context, where Where) error
	DeleteMany(ctx context.Context, where Where) (int64, error)
	// Upsert inserts row, or applies update to the row matching the conflict
	// fields when one already exists. Either way row is left holding the
	// stored row, including its original id.
	Upsert(ctx context.Context, row *T, conflict []string, update Patch) error
	// GroupByCount counts rows per distinct value of field. Only values present
	// in the filtered set appear in the result.
	GroupByCount(ctx context.Context, field string, where Where) (map[string]int64, error)
}

type Store interface {
	Backend() Backend
	Ping(ctx context.Context) error

	Users() Table[types.User]
	Courses() Table[types.Course]
	Categories() Table[types.Category]
	UserCategories() Table[types.UserCategory]
	Enrollments() Table[types.Enrollment]
	Materials() Table[types.Material]
	MaterialSections() Table[types.MaterialSection]
	Progress() Table[types.Progress]
	CourseRatings() Table[types.CourseRating]
}

type tabler interface {
	TableName() string
}

// TableNameOf returns the physical table name declared by T.
func TableNameOf[T any]() string {
	var zero T
	if t, ok := any(zero).(tabler); ok {
		return t.TableName()
	}
	if t, ok := any(&zero).(tabler); ok {
		return t.TableName()
	}
	return ""
}
