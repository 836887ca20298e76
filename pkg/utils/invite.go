package utils

import (
	"crypto/rand"
	"fmt"
)

// 去掉易混淆字符（0/O, 1/I）后的邀请码字母表
const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// InviteCodeLength 邀请码固定长度
const InviteCodeLength = 8

// GenerateInviteCode 生成8位大写字母数字邀请码
func GenerateInviteCode() (string, error) {
	buf := make([]byte, InviteCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invite code: %w", err)
	}
	for i, b := range buf {
		buf[i] = inviteAlphabet[int(b)%len(inviteAlphabet)]
	}
	return string(buf), nil
}
