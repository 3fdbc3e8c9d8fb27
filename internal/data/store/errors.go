package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE codes raised when a table or column has not been migrated yet.
const (
	SQLStateUndefinedTable  = "42P01"
	SQLStateUndefinedColumn = "42703"
	SQLStateUniqueViolation = "23505"
)

// PostgREST schema-cache codes for missing tables and columns.
const (
	PostgRESTMissingColumn = "PGRST204"
	PostgRESTMissingTable  = "PGRST205"
	PostgRESTNoRows        = "PGRST116"
)

// BackendError is a structured error decoded from a remote data backend.
type BackendError struct {
	Status  int
	Code    string
	Message string
	Details string
	Hint    string
}

func (e *BackendError) Error() string {
	if e == nil {
		return "backend error"
	}
	msg := e.Message
	if msg == "" {
		msg = "backend error"
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (code=%s status=%d)", msg, e.Code, e.Status)
	}
	return fmt.Sprintf("%s (status=%d)", msg, e.Status)
}

// SQLState lets BackendError take part in the same classification as driver errors.
func (e *BackendError) SQLState() string {
	if e == nil {
		return ""
	}
	return e.Code
}

type sqlStater interface {
	SQLState() string
}

// IsMissingRelation reports whether err means the table or column behind a
// feature does not exist. Structured codes are checked first; the message
// pattern is only a fallback for backends that expose no code.
func IsMissingRelation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isMissingCode(pgErr.Code)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return isMissingCode(string(pqErr.Code))
	}
	var st sqlStater
	if errors.As(err, &st) {
		if code := strings.TrimSpace(st.SQLState()); code != "" {
			return isMissingCode(code)
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "does not exist")
}

func isMissingCode(code string) bool {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case SQLStateUndefinedTable, SQLStateUndefinedColumn, PostgRESTMissingColumn, PostgRESTMissingTable:
		return true
	default:
		return false
	}
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	var st sqlStater
	if errors.As(err, &st) {
		return st.SQLState() == SQLStateUniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == SQLStateUniqueViolation
	}
	return false
}
