package middleware

import (
	"context"
	"net/http"
	"strings"

	"noteforge-server/pkg/jwt"
	"noteforge-server/pkg/response"
)

type contextKey string

const IdentityKey contextKey = "identity"

// Identity is the verified caller of a request.
type Identity struct {
	UserID string
	Email  string
}

func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Unauthorized")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			claims, err := jwt.ValidateToken(parts[1], jwtSecret)
			if err != nil {
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			recordIdentity(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), Identity{
				UserID: claims.UserID,
				Email:  claims.Email,
			})))
		})
	}
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}

func GetIdentity(r *http.Request) (Identity, bool) {
	id, ok := r.Context().Value(IdentityKey).(Identity)
	return id, ok && id.UserID != ""
}

func GetUserID(r *http.Request) string {
	id, _ := GetIdentity(r)
	return id.UserID
}
