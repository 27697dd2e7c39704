package rbac

import (
	"context"
	"strings"
)

type Checker struct {
	RolePermissions map[string][]string
}

func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	return &Checker{RolePermissions: rp}
}

func (c *Checker) Has(role, perm string) bool {
	perms, ok := c.RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if matchPerm(p, perm) {
			return true
		}
	}
	return false
}

func matchPerm(pattern, perm string) bool {
	if pattern == "*" || pattern == perm {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(perm, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

// Principal is the authenticated caller of a request. It is passed
// explicitly into every core operation.
type Principal struct {
	UserID int64
	Role   string
}

// IsZero reports whether no session was established.
func (p Principal) IsZero() bool { return p.UserID == 0 && p.Role == "" }

// Is reports whether p is authenticated with the given role.
func (p Principal) Is(role string) bool { return p.UserID != 0 && p.Role == role }

// ---- principal in context ----

type ctxKey struct{}

var ctxKeyPrincipal = ctxKey{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

func PrincipalFromContext(ctx context.Context) Principal {
	if v := ctx.Value(ctxKeyPrincipal); v != nil {
		if p, ok := v.(Principal); ok {
			return p
		}
	}
	return Principal{}
}
