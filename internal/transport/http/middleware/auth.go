package middleware

import (
	"context"
	"net/http"
	"strings"

	"zenora/internal/domain/auth"
	"zenora/internal/transport/http/api"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

// SessionChecker verifies a session id has not been revoked.
type SessionChecker interface {
	SessionValid(ctx context.Context, sessionID string) (bool, error)
}

// Authenticate validates the bearer token and attaches the UserContext.
// Tokens whose session has been revoked are rejected even before expiry.
func Authenticate(jwtSecret string, sessions SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				api.Fail(w, r, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			claims, err := auth.ParseToken(jwtSecret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				api.Fail(w, r, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			if sessions != nil && claims.SessionID != "" {
				valid, err := sessions.SessionValid(r.Context(), claims.SessionID)
				if err != nil {
					api.Fail(w, r, http.StatusInternalServerError, "internal", "session check failed")
					return
				}
				if !valid {
					api.Fail(w, r, http.StatusUnauthorized, "unauthorized", "session revoked")
					return
				}
			}
			user := auth.UserContext{
				UserID:    claims.UserID,
				TenantID:  claims.TenantID,
				RoleID:    claims.RoleID,
				RoleName:  claims.RoleName,
				SessionID: claims.SessionID,
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyUser, user)))
		})
	}
}

// GetUser returns the authenticated identity, or false outside the auth
// middleware.
func GetUser(ctx context.Context) (auth.UserContext, bool) {
	user, ok := ctx.Value(ctxKeyUser).(auth.UserContext)
	return user, ok
}
