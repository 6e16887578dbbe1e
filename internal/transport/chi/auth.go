package chi

import (
	"context"
	"net/http"
	"strings"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

type ownerCtxKey struct{}

// anonymousOwner is used when authentication is disabled.
const anonymousOwner = "anonymous"

// OwnerFromContext returns the authenticated user id for the request.
func OwnerFromContext(ctx context.Context) string {
	if owner, ok := ctx.Value(ownerCtxKey{}).(string); ok {
		return owner
	}
	return ""
}

// BearerAuthMiddleware returns a middleware that validates Bearer tokens
// and resolves them to user ids. If tokens is empty, authentication is
// disabled and every request runs as the anonymous user.
func BearerAuthMiddleware(tokens map[string]string) func(http.Handler) http.Handler {
	validTokens := make(map[string]string, len(tokens))
	for token, user := range tokens {
		if token != "" && user != "" {
			validTokens[token] = user
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			// Auth disabled
			if len(validTokens) == 0 {
				next.ServeHTTP(w, r.WithContext(
					context.WithValue(r.Context(), ownerCtxKey{}, anonymousOwner),
				))
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized,
					codeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			owner, ok := validTokens[auth[len(bearerPrefix):]]
			if !ok {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(
				context.WithValue(r.Context(), ownerCtxKey{}, owner),
			))
		})
	}
}
