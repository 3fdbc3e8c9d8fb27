package ctxutil

import (
	"context"

	types "github.com/yungbote/lms-backend/internal/domain"
)

type principalKey struct{}

// Principal is the authenticated caller as carried by a verified token.
type Principal struct {
	UserID string
	Role   types.Role
	Email  string
	Name   string
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalKey{}).(*Principal); ok {
		return p
	}
	return nil
}
