package auth

import (
	"context"

	"github.com/hongminglow/community-site/internal/models"
)

// Allow is the capability gate: it reports whether identity may perform an
// operation that needs the required role.
func Allow(identity models.User, required models.Role) bool {
	return identity.ID != "" && identity.Role.Satisfies(required)
}

type identityKey struct{}

// WithIdentity attaches a resolved identity to ctx. The password hash is stripped.
func WithIdentity(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, identityKey{}, user.Public())
}

// IdentityFrom returns the identity attached by the session guard, if any.
func IdentityFrom(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(identityKey{}).(models.User)
	return user, ok
}
