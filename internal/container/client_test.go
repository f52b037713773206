package container

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/para-dev/para/internal/common/config"
	"github.com/para-dev/para/internal/common/logger"
)

// NewClient only builds a lazily-connecting SDK handle; it never dials the
// daemon, so it is safe to exercise without Docker actually running.
func TestNewClient_DoesNotDialDaemon(t *testing.T) {
	c, err := NewClient(config.ContainerConfig{Host: "unix:///var/run/docker.sock"}, logger.Default())
	require.NoError(t, err)
	require.NotNil(t, c)
	require.NoError(t, c.Close())
}

func TestNewClient_DefaultsHostWhenUnset(t *testing.T) {
	c, err := NewClient(config.ContainerConfig{}, logger.Default())
	require.NoError(t, err)
	require.NotNil(t, c)
	require.NoError(t, c.Close())
}
