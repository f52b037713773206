package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectFromCWD(t *testing.T) {
	names := []string{"auth-api", "ui"}

	name, ok := DetectFromCWD("/root/worktrees/auth-api", "/root/worktrees", names)
	assert.True(t, ok)
	assert.Equal(t, "auth-api", name)

	name, ok = DetectFromCWD("/root/worktrees/auth-api/src/nested", "/root/worktrees", names)
	assert.True(t, ok)
	assert.Equal(t, "auth-api", name)

	_, ok = DetectFromCWD("/root/worktrees/auth-api-other", "/root/worktrees", names)
	assert.False(t, ok, "must not prefix-match a sibling directory that merely shares a prefix")

	_, ok = DetectFromCWD("/elsewhere", "/root/worktrees", names)
	assert.False(t, ok)
}
