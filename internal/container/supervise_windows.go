//go:build windows

package container

import (
	"context"
	"os"
	"strconv"

	"github.com/para-dev/para/internal/state"
)

// supervisorAlive always reports false on Windows: there is no portable
// signal-0 liveness probe, so Launch and Resume fall back to attaching a
// fresh watcher on every call rather than risk never reattaching to a live
// one. A stray extra watcher goroutine is harmless; a session nobody is
// watching is not.
func supervisorAlive(stateDir string) bool { return false }

func writeSupervisorPID(stateDir string) error {
	return os.WriteFile(supervisorPIDPath(stateDir), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func removeSupervisorPID(stateDir string) {
	_ = os.Remove(supervisorPIDPath(stateDir))
}

// signalSupervisorExit is a no-op on Windows; spawnSupervisor never starts a
// separate process here, so there is nothing external to signal.
func signalSupervisorExit(stateDir string) {}

// spawnSupervisor runs the supervisor loop in-process instead of detaching
// it, since Windows' os/exec has no Setsid-equivalent SysProcAttr that keeps
// a child alive past its parent's console closing. §5's detached-supervisor
// process is therefore a Unix-only guarantee, the same way the sandbox
// package's OS confinement is Darwin-only: on this platform the watcher
// still runs, just tied to the lifetime of whichever para process started
// it, same as before this change.
func spawnSupervisor(m *Manager, rec *state.Record) error {
	go func() {
		if err := m.Supervise(context.Background(), rec); err != nil {
			m.log.WithSession(rec.Name).WithError(err).Warn("supervisor loop exited")
		}
	}()
	return nil
}
