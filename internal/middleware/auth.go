package middleware

import (
	"errors"
	"net/http"

	"github.com/hongminglow/community-site/internal/auth"
	"github.com/hongminglow/community-site/internal/http/respond"
	"github.com/hongminglow/community-site/internal/logging"
	"github.com/hongminglow/community-site/internal/models"
	"github.com/hongminglow/community-site/internal/storage"
)

// SessionGuard authenticates requests from the session cookie or bearer token
// and attaches the resolved identity to the request context.
type SessionGuard struct {
	tokens     *auth.TokenManager
	users      storage.UserStore
	cookieName string
	logger     logging.Logger
}

func NewSessionGuard(tokens *auth.TokenManager, users storage.UserStore, cookieName string, logger logging.Logger) *SessionGuard {
	return &SessionGuard{tokens: tokens, users: users, cookieName: cookieName, logger: logger}
}

// Require rejects requests without a valid session with 401.
func (g *SessionGuard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.TokenFromRequest(r, g.cookieName)
		if !ok {
			respond.Error(w, http.StatusUnauthorized, "Not authorized, no token")
			return
		}

		claims, err := g.tokens.Parse(token)
		if err != nil {
			g.logger.Warn(r.Context(), "token rejected", "error", err)
			respond.Error(w, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}

		user, err := g.users.FindByID(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				respond.Error(w, http.StatusUnauthorized, "Not authorized, user not found")
				return
			}
			g.logger.Error(r.Context(), "resolve session user", "user_id", claims.UserID, "error", err)
			respond.Error(w, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), user)))
	})
}

// RequireRole rejects requests whose resolved identity lacks role with 403.
// It must run after SessionGuard.Require.
func RequireRole(role models.Role, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := auth.IdentityFrom(r.Context())
		if !auth.Allow(identity, role) {
			respond.Error(w, http.StatusForbidden, "Not authorized as an "+string(role))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin chains the session guard and the admin role gate.
func (g *SessionGuard) RequireAdmin(next http.Handler) http.Handler {
	return g.Require(RequireRole(models.RoleAdmin, next))
}
