package auth

import (
	"context"
	"net/http"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// SessionLookup returns the stored role and session version of a user, or an
// error when the user no longer exists.
type SessionLookup interface {
	SessionOf(ctx context.Context, userID int64) (role string, version int64, err error)
}

// AttachRoleFromDB re-reads the caller's role and session version from the
// credential store. A token for a removed user, a role that no longer
// matches, or a session ended by logout carries no principal further down
// the chain.
func AttachRoleFromDB(users SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			p := rbac.PrincipalFromContext(ctx)
			if p.IsZero() {
				next.ServeHTTP(w, r)
				return
			}
			role, version, err := users.SessionOf(ctx, p.UserID)
			if err != nil || role != p.Role || version != sessionVersion(ctx) {
				next.ServeHTTP(w, r.WithContext(rbac.WithPrincipal(ctx, rbac.Principal{})))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
