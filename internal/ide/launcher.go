// Package ide implements the HostIDE and SandboxedHost arms of the launcher
// variant type (§9): running the agent as a local subprocess attached to a
// pty, the non-container sibling of the Docker attach used by
// internal/container. The CLI's app wiring registers one *Launcher with the
// session.Manager under both state.ModeHost and state.ModeSandboxedHost; the
// mode on the record decides
// whether the Sandbox Policy Engine wraps the process.
package ide

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/denisbrodbeck/machineid"
	"github.com/para-dev/para/internal/common/config"
	"github.com/para-dev/para/internal/common/logger"
	"github.com/para-dev/para/internal/egress"
	"github.com/para-dev/para/internal/sandbox"
	"github.com/para-dev/para/internal/state"
	"go.uber.org/zap"
)

// process tracks one running IDE subprocess for a session.
type process struct {
	cmd        *exec.Cmd
	ptmx       *os.File
	proxyClose func() error
	waitDone   chan struct{}
}

// Launcher starts and stops the configured IDE command for host-mode
// sessions, implementing session.Launcher by structural typing.
type Launcher struct {
	cfg    config.Config
	engine *sandbox.Engine
	log    *logger.Logger

	mu      sync.Mutex
	running map[string]*process
}

// NewLauncher constructs the host IDE launcher.
func NewLauncher(cfg config.Config, log *logger.Logger) *Launcher {
	return &Launcher{
		cfg:     cfg,
		engine:  sandbox.NewEngine(log),
		log:     log,
		running: make(map[string]*process),
	}
}

// instanceTag derives a stable, non-persisted discriminator for this machine
// so repeated runs on the same host are distinguishable in logs and in the
// rendered sandbox profile's environment without writing a generated ID to
// disk anywhere.
func instanceTag() string {
	id, err := machineid.ProtectedID("para")
	if err != nil || id == "" {
		return "unknown"
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

// Launch starts rec's IDE command in a pty rooted at the session worktree.
// For state.ModeSandboxedHost it first renders and applies the Sandbox
// Policy Engine profile (§4.6), starting the allowlist proxy (§4.7) when the
// profile is standard-proxied. Launch returns once the process has started;
// it does not wait for the IDE to exit.
func (l *Launcher) Launch(ctx context.Context, rec *state.Record, extraPrompt string) error {
	args := append([]string{}, l.cfg.IDE.Args...)
	cmd := exec.CommandContext(context.Background(), l.cfg.IDE.Command, args...)
	cmd.Dir = rec.WorktreePath
	cmd.Env = append(os.Environ(),
		"PARA_SESSION="+rec.Name,
		"PARA_INSTANCE="+instanceTag(),
		"PARA_NONINTERACTIVE=0",
	)
	if extraPrompt != "" {
		cmd.Env = append(cmd.Env, "PARA_EXTRA_PROMPT="+extraPrompt)
	}

	var proxyClose func() error
	if rec.ExecutionMode == state.ModeSandboxedHost {
		profile := sandbox.Profile(rec.SandboxProfile)
		if profile == "" {
			profile = sandbox.Profile(l.cfg.Sandbox.DefaultProfile)
		}

		if profile == sandbox.ProfileStandardProxied {
			proxy := egress.NewProxy(l.cfg.Sandbox.Allowlist, l.log)
			addr, closeProxy, err := proxy.ListenAndServe(fmt.Sprintf("127.0.0.1:%d", l.cfg.Sandbox.ProxyPort))
			if err != nil {
				return fmt.Errorf("start allowlist proxy: %w", err)
			}
			proxyClose = closeProxy
			cmd.Env = append(cmd.Env, "PARA_PROXY_ADDR="+addr.String())
		}

		subs := sandbox.Substitutions{
			TargetDir:   rec.WorktreePath,
			MainRepoDir: rec.WorktreePath,
			TmpDir:      os.TempDir(),
			HomeDir:     homeDir(),
			CacheDir:    cacheDir(),
		}
		if l.engine.Available() {
			if err := l.engine.Apply(cmd, profile, subs); err != nil {
				if proxyClose != nil {
					_ = proxyClose()
				}
				return fmt.Errorf("apply sandbox policy: %w", err)
			}
		} else {
			l.log.Warn("sandbox engine unavailable on this platform; running without OS-level confinement",
				zap.String("session", rec.Name))
		}
	}

	ptmx, err := pty.Start(cmd)
	if err != nil {
		if proxyClose != nil {
			_ = proxyClose()
		}
		return fmt.Errorf("start ide process: %w", err)
	}

	p := &process{cmd: cmd, ptmx: ptmx, proxyClose: proxyClose, waitDone: make(chan struct{})}
	l.mu.Lock()
	l.running[rec.Name] = p
	l.mu.Unlock()

	go l.wait(rec.Name, p)

	l.log.WithSession(rec.Name).Info("ide launched", zap.String("command", l.cfg.IDE.Command))
	return nil
}

// wait reaps the process so it never lingers as a zombie, signals waitDone
// for Stop, and drops it from the tracking map once it exits on its own
// (crash, user quit).
func (l *Launcher) wait(name string, p *process) {
	_ = p.cmd.Wait()
	close(p.waitDone)
	l.mu.Lock()
	if cur, ok := l.running[name]; ok && cur == p {
		delete(l.running, name)
	}
	l.mu.Unlock()
}

// Stop terminates the tracked IDE process for rec, if one is still running,
// and tears down its allowlist proxy.
func (l *Launcher) Stop(ctx context.Context, rec *state.Record) error {
	l.mu.Lock()
	p, ok := l.running[rec.Name]
	delete(l.running, rec.Name)
	l.mu.Unlock()
	if !ok {
		return nil
	}

	if p.ptmx != nil {
		_ = p.ptmx.Close()
	}
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	if p.proxyClose != nil {
		_ = p.proxyClose()
	}

	select {
	case <-p.waitDone:
	case <-time.After(2 * time.Second):
	case <-ctx.Done():
	}
	return nil
}

func homeDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	return os.TempDir()
}

func cacheDir() string {
	if c, err := os.UserCacheDir(); err == nil {
		return c
	}
	return os.TempDir()
}
