package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var principalCtxKey = &contextKey{"principal"}

type contextKey struct {
	name string
}

// DefaultPrincipalKey is the locals key the bearer middleware uses
const DefaultPrincipalKey = "principal"

// WithPrincipal sets the Principal in the given context
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// PrincipalFromContext finds the principal in the context
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalCtxKey).(*Principal)
	return p, ok && p != nil
}

// PrincipalFromRouter reads the principal stored by the bearer middleware
func PrincipalFromRouter(c router.Context, key string) (*Principal, bool) {
	if key == "" {
		key = DefaultPrincipalKey
	}
	p, ok := c.Locals(key).(*Principal)
	return p, ok && p != nil
}
