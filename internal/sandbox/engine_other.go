//go:build !darwin

package sandbox

import (
	"os/exec"

	"github.com/para-dev/para/internal/common/logger"
)

// Engine is a no-op outside macOS: §4.6 confines the OS sandbox to macOS, so
// on other platforms the agent runs with no additional ambient-authority
// restriction beyond what the container path (§4.5) or the operator's own
// environment provides.
type Engine struct {
	log *logger.Logger
}

// NewEngine constructs the no-op sandbox engine.
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{log: log}
}

// Available always returns false outside macOS.
func (e *Engine) Available() bool { return false }

// Apply is a no-op outside macOS.
func (e *Engine) Apply(cmd *exec.Cmd, profile Profile, subs Substitutions) error {
	e.log.Debug("sandbox policy engine unavailable on this platform, running unrestricted")
	return nil
}
