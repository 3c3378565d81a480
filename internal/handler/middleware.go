package handler

import (
	"context"
	"net/http"
	"strings"

	"reader-annotations/internal/domain"
	"reader-annotations/internal/ratelimit"
	apperrors "reader-annotations/pkg/errors"
)

// AuthMiddleware validates Supabase JWT tokens
type AuthMiddleware struct {
	authService domain.AuthService
	logger      domain.Logger
}

func NewAuthMiddleware(authService domain.AuthService, logger domain.Logger) *AuthMiddleware {
	return &AuthMiddleware{authService: authService, logger: logger}
}

func (m *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Get token from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		// Extract token from "Bearer <token>" format
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Token required")
			return
		}

		user, err := m.authService.ValidateToken(token)
		if err != nil {
			m.logger.Warn("Token validation failed", "error", err)
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = context.WithValue(ctx, tokenContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimitMiddleware applies a per-user token bucket to write requests.
// It must run after AuthMiddleware.
func RateLimitMiddleware(limiter *ratelimit.KeyedRateLimiter, logger domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			key := r.RemoteAddr
			if user, ok := GetUserFromContext(r); ok && user != nil {
				key = user.ID
			}
			if !limiter.Allow(key) {
				logger.Debug("Rate limit exceeded", "key", key, "path", r.URL.Path)
				err := apperrors.NewRateLimitedError("too many requests")
				writeError(w, apperrors.GetStatusCode(err), apperrors.PublicMessage(err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
