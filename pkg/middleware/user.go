package middleware

import (
	"net/http"
	"strings"

	"ucraft/trafficlogger/pkg/traffic"
)

// UserFromHeader attaches the value of header to the request context as the
// authenticated user, so traffic records carry it as user_id. The header
// must be set by a trusted authentication gateway in front of this server.
// An empty header name disables the middleware.
//
// Example usage:
//
//	handler = UserFromHeader("X-Authenticated-User")(handler)
func UserFromHeader(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if header == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID := strings.TrimSpace(r.Header.Get(header)); userID != "" {
				r = r.WithContext(traffic.WithUser(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}
