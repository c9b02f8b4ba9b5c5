package httpapi

import (
	"context"
	"net/http"
	"strings"

	"qms/hospital-service/internal/auth"
)

type authContextKey struct{}

// AuthMiddleware attaches the bearer token's identity when one is sent. Requests
// without a token pass through anonymously; requireRoles decides if that is enough.
func AuthMiddleware(tokens *auth.TokenManager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := tokens.Verify(token)
		if err != nil {
			writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}
		recordLogUser(r.Context(), id.UserID)
		ctx := context.WithValue(r.Context(), authContextKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFromContext(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(authContextKey{}).(auth.Identity)
	return id, ok
}

// requireRoles rejects anonymous callers, and callers outside roles when any are given.
func (h *Handler) requireRoles(next http.HandlerFunc, roles ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := identityFromContext(r.Context())
		if !ok {
			writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing token")
			return
		}
		if len(roles) > 0 && !contains(roles, id.Role) {
			writeError(w, requestIDFromRequest(r), http.StatusForbidden, "access_denied", "role not allowed")
			return
		}
		next(w, r)
	})
}

func contains(values []string, value string) bool {
	for _, item := range values {
		if item == value {
			return true
		}
	}
	return false
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}
