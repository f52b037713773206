// Package cli implements the CLI surface external collaborator of spec §6:
// the start/finish/cancel/recover/resume/list/status/config subcommands,
// wired against the Session Manager's Go API.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/para-dev/para/internal/common/config"
	"github.com/para-dev/para/internal/common/logger"
	"github.com/para-dev/para/internal/common/paraerr"
	"github.com/para-dev/para/internal/container"
	"github.com/para-dev/para/internal/events"
	"github.com/para-dev/para/internal/ide"
	"github.com/para-dev/para/internal/session"
	"github.com/para-dev/para/internal/state"
	"github.com/para-dev/para/internal/status"
	"github.com/para-dev/para/internal/worktree"
)

// app bundles the dependency graph one CLI invocation wires up: the Session
// Manager composed from the State Store, Worktree Manager, and whichever of
// the host/sandboxed-host/container launchers are available.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	store     *state.Store
	session   *session.Manager
	hub       *status.Hub
	container *container.Manager
	closers   []func()
}

// newApp loads configuration, runs the retention sweep, and wires the full
// launcher set. A container runtime that cannot be reached is logged and
// skipped rather than treated as fatal: host-mode sessions must keep working
// on a machine with no Docker daemon.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, paraerr.Fatal(fmt.Sprintf("load configuration: %v", err))
	}

	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})
	if err != nil {
		return nil, paraerr.Fatal(fmt.Sprintf("initialize logger: %v", err))
	}

	repoPath, err := repoRoot()
	if err != nil {
		return nil, err
	}

	store, err := state.New(cfg.Dirs.RecordsDir)
	if err != nil {
		return nil, err
	}

	if removed, sweepErr := store.SweepRetention(time.Duration(cfg.Retention.Days) * 24 * time.Hour); sweepErr != nil {
		log.WithError(sweepErr).Debug("retention sweep failed")
	} else if len(removed) > 0 {
		log.Info("retention sweep removed archived sessions", zap.Strings("sessions", removed))
	}

	wtMgr := worktree.NewManager(cfg.SourceTree, cfg.Dirs, worktree.NewGitSourceTree(), log)

	// launchers is shared by reference with the Session Manager constructed
	// below, so the container launcher can be inserted after the Manager
	// exists without a New-time import cycle (container.NewManager takes the
	// Session Manager as its SessionLifecycle).
	launchers := session.LauncherSet{}
	mgr := session.New(*cfg, store, wtMgr, launchers, log, repoPath)

	hostLauncher := ide.NewLauncher(*cfg, log)
	launchers[state.ModeHost] = hostLauncher
	launchers[state.ModeSandboxedHost] = hostLauncher

	hub := status.NewHub(log)
	stopHub := make(chan struct{})
	go hub.Run(stopHub)

	a := &app{cfg: cfg, log: log, store: store, session: mgr, hub: hub}
	a.closers = append(a.closers, func() { close(stopHub) })

	if cfg.Container.Enabled {
		client, clientErr := container.NewClient(cfg.Container, log)
		if clientErr != nil {
			log.WithError(clientErr).Warn("container runtime unavailable; container-mode sessions will fail to launch")
		} else {
			containerMgr := container.NewManager(client, cfg.Container, mgr, log).WithStatusHub(hub)
			a.closers = append(a.closers, func() { _ = client.Close() })

			bus, busCleanup, busErr := events.Provide(cfg, log)
			if busErr != nil {
				log.WithError(busErr).Debug("event bus unavailable; container phase events will not be published")
			} else {
				containerMgr = containerMgr.WithEventBus(bus.Bus)
				a.closers = append(a.closers, func() { _ = busCleanup() })
			}

			launchers[state.ModeContainer] = containerMgr
			a.container = containerMgr

			// A supervisor-less or exited container for an Active record means
			// its supervise process crashed or was killed without ever seeing
			// a finish/cancel signal; nothing else polls for that between CLI
			// invocations, so every invocation sweeps for it once, the same
			// way the retention sweep runs unconditionally above.
			if active, listErr := store.List(state.FilterActiveOnly); listErr != nil {
				log.WithError(listErr).Debug("crash reconciliation: failed to list active sessions")
			} else {
				containerMgr.ReconcileCrashed(context.Background(), active)
			}
		}
	}

	return a, nil
}

// Close releases every resource newApp acquired (docker client, event bus).
func (a *app) Close() {
	for _, closer := range a.closers {
		closer()
	}
}

// repoRoot shells out to git to find the repository this invocation runs
// against, the same way the Worktree Manager's own git-backed SourceTree
// resolves paths, rather than assuming the current directory is the root.
func repoRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine current directory: %w", err)
	}
	out, err := exec.CommandContext(context.Background(), "git", "-C", cwd, "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", paraerr.Validation("not inside a git repository")
	}
	return strings.TrimSpace(string(out)), nil
}
