package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadWithPath_Defaults(t *testing.T) {
	cfg, err := LoadWithPath(t.TempDir())
	require.NoError(t, err)

	require.True(t, cfg.Container.Enabled)
	require.False(t, cfg.Container.ACPAttach)
	require.Equal(t, "bridge", cfg.Container.NetworkMode)
	require.Equal(t, "standard", cfg.Sandbox.DefaultProfile)
	require.Equal(t, 30, cfg.Retention.Days)
	require.Equal(t, "main", cfg.SourceTree.DefaultBranch)
}

func TestSaveAndLoadWithPath_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadWithPath(dir)
	require.NoError(t, err)

	cfg.Container.ACPAttach = true
	cfg.Container.DefaultImage = "para/custom-runtime:v2"
	cfg.SourceTree.BranchPrefix = "mine"

	require.NoError(t, Save(cfg, dir))

	loaded, err := LoadWithPath(dir)
	require.NoError(t, err)

	require.True(t, loaded.Container.ACPAttach)
	require.Equal(t, "para/custom-runtime:v2", loaded.Container.DefaultImage)
	require.Equal(t, "mine", loaded.SourceTree.BranchPrefix)
}

func TestSave_CreatesMissingDirectory(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "nested", "config-dir")

	cfg, err := LoadWithPath(base)
	require.NoError(t, err)

	require.NoError(t, Save(cfg, dir))

	info, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	require.False(t, info.IsDir())
}

func TestDefaultConfigDir_UnderHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	require.Equal(t, filepath.Join(home, ".para"), DefaultConfigDir())
}

func TestDefaultDockerHost_RespectsEnvOverride(t *testing.T) {
	t.Setenv("DOCKER_HOST", "tcp://example.invalid:2375")
	require.Equal(t, "tcp://example.invalid:2375", DefaultDockerHost())
}

func TestDefaultDockerHost_FallsBackToUnixSocket(t *testing.T) {
	t.Setenv("DOCKER_HOST", "")
	require.Equal(t, "unix:///var/run/docker.sock", DefaultDockerHost())
}

func TestValidate_RejectsEmptyBranchPrefix(t *testing.T) {
	cfg, err := LoadWithPath(t.TempDir())
	require.NoError(t, err)

	cfg.SourceTree.BranchPrefix = ""
	err = validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "branchPrefix")
}

func TestValidate_RejectsInvalidLogLevel(t *testing.T) {
	cfg, err := LoadWithPath(t.TempDir())
	require.NoError(t, err)

	cfg.Logging.Level = "verbose"
	err = validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "logging.level")
}

func TestValidate_RejectsOutOfRangeProxyPort(t *testing.T) {
	cfg, err := LoadWithPath(t.TempDir())
	require.NoError(t, err)

	cfg.Sandbox.ProxyPort = 70000
	err = validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "proxyPort")
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	cfg, err := LoadWithPath(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, validate(cfg))
}
