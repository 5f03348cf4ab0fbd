package auth

import (
	"context"
	"net/http"
	"strings"
)

// ctxKey is the private context key type for values stored by this package.
type ctxKey struct{}

// usernameKey stores the authenticated username in a request context.
var usernameKey ctxKey

// Username returns the authenticated username stored in ctx by
// [RequireAuth], or "" when the request was not authenticated.
func Username(ctx context.Context) string {
	username, _ := ctx.Value(usernameKey).(string)
	return username
}

// WithUsername returns a copy of ctx carrying username. Intended for tests
// that exercise handlers behind [RequireAuth].
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

// RequireAuth returns middleware that validates the Authorization bearer
// token on each request and stores the resolved username in the request
// context. Requests without a valid token receive 401 and never reach the
// wrapped handler.
func RequireAuth(tokens *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			username, err := tokens.Parse(tokenString)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUsername(r.Context(), username)))
		})
	}
}
