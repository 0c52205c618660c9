package server

import (
	"context"
	"net/http"
	"strings"

	"dimi/core/auth"
	"dimi/logger"
)

type contextKey string

const claimsKey contextKey = "claims"

// AuthMiddleware 校验 Bearer 令牌；issuer 为 nil 时直接放行
func AuthMiddleware(issuer *auth.Issuer, next http.HandlerFunc) http.HandlerFunc {
	if issuer == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := issuer.ParseToken(parts[1])
		if err != nil {
			logger.Warn("[Auth] 令牌校验失败", logger.ErrorField(err))
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// ClaimsFromContext 未鉴权的请求返回 nil
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}
