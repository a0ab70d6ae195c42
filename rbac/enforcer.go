package rbac

import (
	"net/http"

	"github.com/ecobuddy/locator/httpx"
)

// RoleResolver extracts roles for the current request context.
type RoleResolver func(r *http.Request) []Role

// Enforcer coordinates RBAC evaluation for HTTP handlers.
type Enforcer struct {
	resolve RoleResolver
}

// NewEnforcer constructs an RBAC enforcer with the provided resolver.
func NewEnforcer(resolver RoleResolver) *Enforcer {
	return &Enforcer{resolve: resolver}
}

// Authorize ensures the caller has one of the roles mapped to the supplied
// permission. Anonymous callers get 401, signed-in callers without a
// matching role get 403.
func (e *Enforcer) Authorize(permission Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roles := e.resolve(r)
			if len(roles) == 0 {
				httpx.Error(w, http.StatusUnauthorized, "authentication required")
				return
			}

			if Grants(roles, permission) {
				next.ServeHTTP(w, r)
				return
			}

			httpx.Error(w, http.StatusForbidden, "insufficient role membership")
		})
	}
}

// Allows reports whether the caller of r holds permission.
func (e *Enforcer) Allows(r *http.Request, permission Permission) bool {
	return Grants(e.resolve(r), permission)
}

// Grants reports whether any of roles satisfies permission.
func Grants(roles []Role, permission Permission) bool {
	allowed := RoleMatrix[permission]
	if len(roles) == 0 || len(allowed) == 0 {
		return false
	}
	for _, have := range roles {
		for _, want := range allowed {
			if have == want {
				return true
			}
		}
	}
	return false
}
