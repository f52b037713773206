package session

import (
	"context"

	"github.com/para-dev/para/internal/state"
)

// Launcher is dispatched by ExecutionMode, the idiomatic Go rendering of the
// variant type named in spec §9 ({HostIDE, SandboxedHost{profile},
// Container{image, network_isolation, allowed_domains}}): Go has no sum
// types, so the variant's payload lives on the Record itself and dispatch
// happens through this interface, selected by a map keyed on ExecutionMode.
type Launcher interface {
	// Launch starts (or re-attaches to, on Resume) the agent process for rec.
	Launch(ctx context.Context, rec *state.Record, extraPrompt string) error
	// Stop tears down whatever Launch started, used by Cancel.
	Stop(ctx context.Context, rec *state.Record) error
}

// LauncherSet maps each ExecutionMode to its Launcher implementation. The
// external collaborators (IDE glue, Sandbox Policy Engine, Container
// Supervisor) each register themselves here; Session Manager never imports
// their packages directly, keeping the dependency pointed outward from the
// core as spec §1 requires.
type LauncherSet map[state.ExecutionMode]Launcher
