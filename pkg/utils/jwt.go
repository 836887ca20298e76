package utils

import (
	"fmt"
	"time"

	"hivemind-backend/pkg/models"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateAccessToken 签发访问令牌。没有独立的登录流程，
// 令牌由受信的前置系统（或开发端点）签发。
func GenerateAccessToken(userID, displayName, secret string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	claims := models.TokenClaims{
		UserID:      userID,
		DisplayName: displayName,
		Type:        "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
