package rbac

import (
	"net/http"
	"strings"
)

var defaultChecker = NewChecker(nil)

// Require enforces a single permission. Requests without a session, or whose
// role lacks perm, never reach next.
func Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p.IsZero() || !defaultChecker.Has(p.Role, perm) {
				Deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Deny refuses the request: browsers are sent back to the entry point, API
// clients get 401 without a session and 403 with the wrong role.
func Deny(w http.ResponseWriter, r *http.Request) {
	if wantsHTML(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if PrincipalFromContext(r.Context()).IsZero() {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	http.Error(w, "forbidden", http.StatusForbidden)
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Accept")), "text/html")
}
