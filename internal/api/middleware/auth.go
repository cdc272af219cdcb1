package middleware

import (
	"context"
	"net/http"

	"github.com/gatherguru/server/internal/api/respond"
	"github.com/gatherguru/server/internal/auth"
	"github.com/gatherguru/server/internal/domain/principals"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// unauthorizedMessage is deliberately uniform: missing cookie, bad token,
// and vanished principal are indistinguishable to the client.
const unauthorizedMessage = "Not authorized to access this route"

type contextKeyAuth string

const principalKey contextKeyAuth = "principal"

// PrincipalStore resolves a verified token to a live account. A token whose
// principal no longer exists is treated as invalid.
type PrincipalStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*principals.Principal, error)
}

// Authenticate reads the session cookie, verifies the token, loads the
// principal, and attaches it to the request context. First stage of the
// two-stage gate; RequireRoles is the second.
func Authenticate(manager *auth.JWTManager, store PrincipalStore, cookieName, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				respond.Error(w, r, http.StatusUnauthorized, unauthorizedMessage, auth.ErrMissingToken, env)
				return
			}

			claims, err := manager.Verify(cookie.Value)
			if err != nil {
				respond.Error(w, r, http.StatusUnauthorized, unauthorizedMessage, err, env)
				return
			}

			id, err := primitive.ObjectIDFromHex(claims.Subject)
			if err != nil {
				respond.Error(w, r, http.StatusUnauthorized, unauthorizedMessage, auth.ErrInvalidToken, env)
				return
			}

			principal, err := store.GetByID(r.Context(), id)
			if err != nil || principal.Role != principals.Role(claims.Role) {
				respond.Error(w, r, http.StatusUnauthorized, unauthorizedMessage, auth.ErrInvalidToken, env)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles rejects with 403 unless the authenticated principal's role is
// in the allowed set. Must run after Authenticate.
func RequireRoles(env string, roles ...principals.Role) func(http.Handler) http.Handler {
	allowed := make(map[principals.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFrom(r)
			if principal == nil {
				respond.Error(w, r, http.StatusUnauthorized, unauthorizedMessage, auth.ErrMissingToken, env)
				return
			}
			if _, ok := allowed[principal.Role]; !ok {
				respond.Error(w, r, http.StatusForbidden, unauthorizedMessage, nil, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFrom returns the authenticated principal attached by
// Authenticate, or nil.
func PrincipalFrom(r *http.Request) *principals.Principal {
	if r == nil {
		return nil
	}
	if principal, ok := r.Context().Value(principalKey).(*principals.Principal); ok {
		return principal
	}
	return nil
}

// WithPrincipal attaches a principal to the context. Exposed for handler
// tests that bypass the middleware.
func WithPrincipal(ctx context.Context, principal *principals.Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}
