package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims JWT载荷：只承载身份，不承载授权
type TokenClaims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"` // 仅接受 "access"
	jwt.RegisteredClaims
}
