//go:build !windows

package container

import (
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSupervisorAlive_NoPidfile(t *testing.T) {
	require.False(t, supervisorAlive(t.TempDir()))
}

func TestSupervisorAlive_LiveProcess(t *testing.T) {
	stateDir := t.TempDir()
	require.NoError(t, writeSupervisorPID(stateDir))
	require.True(t, supervisorAlive(stateDir))
}

func TestSupervisorAlive_StalePID(t *testing.T) {
	stateDir := t.TempDir()
	require.NoError(t, os.WriteFile(supervisorPIDPath(stateDir), []byte(strconv.Itoa(99999)), 0o644))
	require.False(t, supervisorAlive(stateDir))
}

func TestRemoveSupervisorPID_ClearsLiveness(t *testing.T) {
	stateDir := t.TempDir()
	require.NoError(t, writeSupervisorPID(stateDir))
	require.True(t, supervisorAlive(stateDir))

	removeSupervisorPID(stateDir)
	require.False(t, supervisorAlive(stateDir))
}

func TestSignalSupervisorExit_NoPidfileIsNoop(t *testing.T) {
	signalSupervisorExit(t.TempDir()) // must not panic when nothing is running
}
