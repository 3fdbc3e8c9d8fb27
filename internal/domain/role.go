package domain

import "strings"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

func ParseRole(raw string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return r, true
	default:
		return "", false
	}
}

// Privileged reports whether the role bypasses category-based course access.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleTeacher
}

func (r Role) String() string { return string(r) }
