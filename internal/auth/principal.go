package auth

import (
	"context"
	"slices"

	"github.com/sakif/edublog/internal/model"
)

// Principal is the identity a verified token speaks for, valid for one
// request. It is never persisted.
type Principal struct {
	ID   string
	Role model.Role
}

// HasRole reports whether the principal's role is in roles.
func (p Principal) HasRole(roles ...model.Role) bool {
	return slices.Contains(roles, p.Role)
}

// CanModify is the ownership gate: admins may modify anything, everyone
// else only what they authored.
func (p Principal) CanModify(ownerID string) bool {
	return p.Role == model.RoleAdmin || (ownerID != "" && p.ID == ownerID)
}

// contextKey is an unexported type used for context keys in this package.
// Only this package can create a key of this type, so nothing else can
// read or shadow the principal stored under it.
type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated principal, or false when
// the request is anonymous.
//
// Usage in handlers:
//
//	principal, ok := auth.PrincipalFromContext(r.Context())
//	if !ok {
//	    // anonymous request
//	}
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok && p.ID != ""
}
