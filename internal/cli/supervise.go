package cli

import (
	"github.com/spf13/cobra"

	"github.com/para-dev/para/internal/common/paraerr"
	"github.com/para-dev/para/internal/state"
)

// newSuperviseCmd builds the hidden entry point Launch self-execs into a
// detached process: `para supervise <name>` attaches to the named session's
// already-running container and blocks watching its signal directory until
// the session finishes, is cancelled, or this process is sent SIGTERM (by
// `para cancel`, or by the user). It is never meant to be typed by hand.
func newSuperviseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "supervise <name>",
		Short:  "Internal: watch a containerized session's signal directory",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.store.Get(args[0])
			if err != nil {
				return err
			}
			if rec.ExecutionMode != state.ModeContainer {
				return paraerr.Validation("session \"" + rec.Name + "\" is not a container-mode session")
			}
			if a.container == nil {
				return paraerr.Fatal("container runtime unavailable in this process")
			}
			return a.container.Supervise(cmd.Context(), rec)
		},
	}

	return cmd
}
