package models

import (
	"strings"

	"github.com/google/uuid"
)

// NewID 生成带前缀的短ID，例如 usr_1a2b3c4d5e6f
func NewID(prefix string) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return prefix + "_" + hex[:12]
}
