package container

import (
	"os"
	"testing"

	"github.com/para-dev/para/internal/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardedEnv_DisabledReturnsNil(t *testing.T) {
	cfg := config.ContainerConfig{ForwardCredentials: false, ForwardedEnvVars: []string{"ANTHROPIC_API_KEY"}}
	env, wipe := ForwardedEnv(cfg)
	assert.Nil(t, env)
	require.NotNil(t, wipe)
	wipe() // must be safe to call even when nothing was forwarded
}

func TestForwardedEnv_ForwardsPresentVars(t *testing.T) {
	t.Setenv("PARA_TEST_TOKEN", "secret-value")
	cfg := config.ContainerConfig{ForwardCredentials: true, ForwardedEnvVars: []string{"PARA_TEST_TOKEN", "PARA_TEST_MISSING"}}

	env, wipe := ForwardedEnv(cfg)
	assert.Equal(t, []string{"PARA_TEST_TOKEN=secret-value"}, env)
	wipe()
}

func TestForwardedEnv_SkipsEmptyValue(t *testing.T) {
	t.Setenv("PARA_TEST_EMPTY", "")
	cfg := config.ContainerConfig{ForwardCredentials: true, ForwardedEnvVars: []string{"PARA_TEST_EMPTY"}}
	env, wipe := ForwardedEnv(cfg)
	assert.Empty(t, env)
	wipe()
	_ = os.Unsetenv("PARA_TEST_EMPTY")
}
