package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/para-dev/para/internal/state"
)

func newTestRecoverApp(t *testing.T) *app {
	t.Helper()
	store, err := state.New(filepath.Join(t.TempDir(), "records"))
	require.NoError(t, err)
	return &app{store: store}
}

func TestRunRecoverList_ShowsOnlyRecoverableRecords(t *testing.T) {
	a := newTestRecoverApp(t)

	require.NoError(t, a.store.Put(&state.Record{Name: "widget", Branch: "para/widget", State: state.Recoverable}, false))
	require.NoError(t, a.store.Archive("widget"))

	require.NoError(t, a.store.Put(&state.Record{Name: "done", Branch: "para/done", State: state.Finished}, false))
	require.NoError(t, a.store.Archive("done"))

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, runRecoverList(cmd, a))

	out := buf.String()
	require.Contains(t, out, "widget")
	require.Contains(t, out, "para/widget")
	require.NotContains(t, out, "done")
}

func TestRunRecoverList_EmptyWhenNoRecoverableRecords(t *testing.T) {
	a := newTestRecoverApp(t)

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, runRecoverList(cmd, a))
	require.Contains(t, buf.String(), "NAME")
	require.Contains(t, buf.String(), "BRANCH")
	require.Contains(t, buf.String(), "CANCELLED AT")
}
