package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithPrefix(t *testing.T) {
	prev := NewFunc
	defer func() { NewFunc = prev }()
	NewFunc = func() string { return "fixed" }

	assert.Equal(t, "task-fixed", NewWithPrefix(TaskPrefix))
	assert.Equal(t, "fixed", NewWithPrefix(""))

	NewFunc = prev
	a, b := NewWithPrefix(SessionPrefix), NewWithPrefix(SessionPrefix)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "ses-"))
}
