package traffic

import (
	"context"
	"net/http"
)

type contextKey string

const userKey contextKey = "traffic_user"

// WithUser attaches an authenticated user identifier to the context. The value
// is opaque to this package; whatever the authentication layer uses as the
// user identity is recorded verbatim.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// UserFromContext returns the user identifier stored by WithUser.
func UserFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userKey).(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}

// UserResolver extracts the authenticated user identifier from a request.
type UserResolver func(r *http.Request) (string, bool)

// ContextUserResolver resolves the user placed in the request context by WithUser.
func ContextUserResolver(r *http.Request) (string, bool) {
	return UserFromContext(r.Context())
}
