package models

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewID(t *testing.T) {
	pattern := regexp.MustCompile(`^usr_[0-9a-f]{12}$`)

	a := NewID("usr")
	b := NewID("usr")
	assert.Regexp(t, pattern, a)
	assert.Regexp(t, pattern, b)
	assert.NotEqual(t, a, b)

	assert.Regexp(t, regexp.MustCompile(`^spc_[0-9a-f]{12}$`), NewID("spc"))
}
