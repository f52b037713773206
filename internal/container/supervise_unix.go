//go:build !windows

package container

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/para-dev/para/internal/state"
)

// supervisorAlive reports whether a `para supervise` process is already
// watching stateDir, by probing the PID recorded in its pidfile with a
// signal-0 liveness check. Modeled on the lockfile staleness check pattern:
// os.ErrProcessDone means the PID is gone, "operation not permitted" means
// it is alive but owned by someone else, anything else is treated as dead.
func supervisorAlive(stateDir string) bool {
	pid, ok := readSupervisorPID(stateDir)
	if !ok {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return strings.Contains(err.Error(), "operation not permitted")
}

func readSupervisorPID(stateDir string) (int, bool) {
	data, err := os.ReadFile(supervisorPIDPath(stateDir))
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// writeSupervisorPID records the current process's PID so later Launch,
// Resume, and crash-reconciliation calls know a supervisor already owns
// this session's container.
func writeSupervisorPID(stateDir string) error {
	return os.WriteFile(supervisorPIDPath(stateDir), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func removeSupervisorPID(stateDir string) {
	_ = os.Remove(supervisorPIDPath(stateDir))
}

// signalSupervisorExit asks a running `para supervise` process to shut down
// by sending it SIGTERM, the same signal cmd/para/main.go already installs a
// handler for on every para invocation, including `supervise` itself.
func signalSupervisorExit(stateDir string) {
	pid, ok := readSupervisorPID(stateDir)
	if !ok {
		return
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	_ = proc.Signal(syscall.SIGTERM)
}

// spawnSupervisor self-execs `para supervise <name>` detached from the
// invoking process's session, per §5: the signal watcher it runs must
// survive the `para start`/`para resume` command that provisioned the
// container. Setsid detaches the child from the controlling terminal so it
// is not killed when the parent's session ends, and Process.Release lets
// the parent exit without waiting on it, leaving it to be reparented and
// reaped by init rather than held as a zombie tied to an unwaited handle.
func spawnSupervisor(_ *Manager, rec *state.Record) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate para binary: %w", err)
	}

	stateDir := filepath.Join(rec.WorktreePath, ".para-state")
	logFile, err := os.OpenFile(filepath.Join(stateDir, "supervisor.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open supervisor log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(exe, "supervise", rec.Name)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start supervisor process: %w", err)
	}
	return cmd.Process.Release()
}
