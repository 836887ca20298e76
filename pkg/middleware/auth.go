package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"hivemind-backend/pkg/config"
	"hivemind-backend/pkg/models"
	"hivemind-backend/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey 用于在context中存储用户身份的键
type ContextKey string

const (
	UserContextKey ContextKey = "user"
)

// Identity 请求携带的已验证身份
type Identity struct {
	UserID      string
	DisplayName string
}

// AuthMiddleware JWT认证中间件。只解身份，不做授权；
// 授权判断（空间成员、审批归属）在各 handler 里做。
func AuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.WriteUnauthorizedResponse(w, "Missing authorization header")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				utils.WriteUnauthorizedResponse(w, "Invalid authorization header format")
				return
			}

			token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil {
				utils.WriteUnauthorizedResponse(w, "Invalid token: "+err.Error())
				return
			}
			if !token.Valid {
				utils.WriteUnauthorizedResponse(w, "Invalid token")
				return
			}

			claims, ok := token.Claims.(*models.TokenClaims)
			if !ok {
				utils.WriteUnauthorizedResponse(w, "Invalid token claims")
				return
			}

			// 只接受 access token
			if claims.Type != "access" {
				utils.WriteUnauthorizedResponse(w, "Invalid token type")
				return
			}

			identity := &Identity{
				UserID:      claims.UserID,
				DisplayName: claims.DisplayName,
			}

			ctx := context.WithValue(r.Context(), UserContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentityFromContext 从context中获取身份信息
func GetIdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(UserContextKey).(*Identity)
	return identity, ok
}

// RequireIdentity 要求请求必须已认证
func RequireIdentity(ctx context.Context) (*Identity, error) {
	identity, ok := GetIdentityFromContext(ctx)
	if !ok || identity == nil {
		return nil, fmt.Errorf("user not authenticated")
	}
	return identity, nil
}
