package middleware

import (
	"context"
	"net/http"

	"zenora/internal/transport/http/api"
)

// PermissionStore answers whether a role grants a permission.
type PermissionStore interface {
	HasPermission(ctx context.Context, roleID, permission string) (bool, error)
}

// RequirePermission guards a route subtree behind a single permission.
// Must sit inside Authenticate.
func RequirePermission(permission string, store PermissionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			allowed, err := store.HasPermission(r.Context(), user.RoleID, permission)
			if err != nil {
				api.Fail(w, r, http.StatusInternalServerError, "internal", "permission check failed")
				return
			}
			if !allowed {
				api.Fail(w, r, http.StatusForbidden, "forbidden", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
