package httpserver

import (
	"context"
	"log"
	"net/http"
	"strings"

	"messaging_go/internal/domain"
	"messaging_go/internal/security"
)

type contextKey string

const userContextKey contextKey = "currentUser"

// WithUser returns a new context carrying the current user profile.
func WithUser(ctx context.Context, user *domain.UserProfile) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// CurrentUser extracts the current user from context, if any.
func CurrentUser(r *http.Request) *domain.UserProfile {
	if v := r.Context().Value(userContextKey); v != nil {
		if u, ok := v.(*domain.UserProfile); ok {
			return u
		}
	}
	return nil
}

// AuthMiddleware validates the Bearer token minted by the account
// system and attaches the resolved user profile to the context.
func AuthMiddleware(tokens *security.TokenService, users domain.UserDirectory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}
			tokenStr := strings.TrimSpace(authHeader[len("Bearer "):])

			userID, err := tokens.ParseUserID(tokenStr)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			user, err := users.Resolve(r.Context(), userID)
			if err != nil {
				log.Printf("AuthMiddleware: resolve user %d: %v", userID, err)
				http.Error(w, "user not found", http.StatusUnauthorized)
				return
			}

			ctx := WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
