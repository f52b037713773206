package ide

import (
	"context"
	"testing"
	"time"

	"github.com/para-dev/para/internal/common/config"
	"github.com/para-dev/para/internal/common/logger"
	"github.com/para-dev/para/internal/state"
	"github.com/stretchr/testify/require"
)

func TestLauncher_LaunchAndStop_HostMode(t *testing.T) {
	cfg := config.Config{IDE: config.IDEConfig{Command: "sh", Args: []string{"-c", "sleep 30"}}}
	l := NewLauncher(cfg, logger.Default())

	rec := &state.Record{Name: "widget-fox", WorktreePath: t.TempDir(), ExecutionMode: state.ModeHost}

	require.NoError(t, l.Launch(context.Background(), rec, ""))

	l.mu.Lock()
	_, tracked := l.running[rec.Name]
	l.mu.Unlock()
	require.True(t, tracked)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.Stop(ctx, rec))

	l.mu.Lock()
	_, stillTracked := l.running[rec.Name]
	l.mu.Unlock()
	require.False(t, stillTracked)
}

func TestLauncher_Stop_UnknownSessionIsNoop(t *testing.T) {
	l := NewLauncher(config.Config{}, logger.Default())
	rec := &state.Record{Name: "never-launched"}
	require.NoError(t, l.Stop(context.Background(), rec))
}

func TestInstanceTag_StableAcrossCalls(t *testing.T) {
	a := instanceTag()
	b := instanceTag()
	require.Equal(t, a, b)
	require.NotEmpty(t, a)
}
