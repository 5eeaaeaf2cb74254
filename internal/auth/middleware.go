package auth

import (
	"context"
	"net/http"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Middleware gates a route group on a valid, unrevoked session token.
func Middleware(secret string, cache TokenCache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := ExtractToken(r)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := VerifyToken(secret, tokenString)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if cache != nil {
				revoked, err := cache.IsRevoked(r.Context(), claims.ID)
				if err != nil || revoked {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user set by Middleware, or "".
func UserID(ctx context.Context) string {
	if uid, ok := ctx.Value(userIDKey).(string); ok {
		return uid
	}
	return ""
}
