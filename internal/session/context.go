package session

import (
	"context"

	"github.com/k9ert/rbac-poc/internal/kratos"
)

type ctxKey string

const sessionContextKey ctxKey = "rbacpoc.session"

func withSessionContext(ctx context.Context, s kratos.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

func FromContext(ctx context.Context) (kratos.Session, bool) {
	v := ctx.Value(sessionContextKey)
	s, ok := v.(kratos.Session)
	return s, ok
}

// EmailFromContext returns the identity email used as the audit field on
// writes, or "" when the request was not validated.
func EmailFromContext(ctx context.Context) string {
	s, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return s.Identity.Traits.Email
}
