//go:build darwin

package sandbox

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/para-dev/para/internal/common/logger"
)

// Engine wraps an agent command with the macOS sandbox-exec launcher.
type Engine struct {
	log *logger.Logger
}

// NewEngine constructs the macOS sandbox engine.
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{log: log}
}

// Available reports whether this platform can enforce the policy.
func (e *Engine) Available() bool { return true }

// Apply renders profile with subs and wraps cmd so it runs under
// sandbox-exec, restricting its ambient authority per §4.6. It must be
// called before cmd.Start.
func (e *Engine) Apply(cmd *exec.Cmd, profile Profile, subs Substitutions) error {
	policy, err := Render(profile, subs)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(subs.TmpDir, "para-sandbox-*.sb")
	if err != nil {
		return fmt.Errorf("write sandbox profile: %w", err)
	}
	if _, err := f.WriteString(policy); err != nil {
		f.Close()
		return fmt.Errorf("write sandbox profile: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write sandbox profile: %w", err)
	}

	args := append([]string{"-f", f.Name(), cmd.Path}, cmd.Args[1:]...)
	cmd.Path, err = exec.LookPath("sandbox-exec")
	if err != nil {
		return fmt.Errorf("locate sandbox-exec: %w", err)
	}
	cmd.Args = append([]string{"sandbox-exec"}, args...)

	e.log.Debug("wrapped command with sandbox-exec profile")
	return nil
}
