package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/para-dev/para/internal/common/paraerr"
	"github.com/para-dev/para/internal/session"
	"github.com/para-dev/para/internal/state"
)

func newStartCmd() *cobra.Command {
	var (
		mode            string
		sandboxProfile  string
		image           string
		networkIsolated bool
		allowedDomains  string
		taskFile        string
	)

	cmd := &cobra.Command{
		Use:   "start [name]",
		Short: "Start a new session in its own worktree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var name string
			if len(args) == 1 {
				name = args[0]
			}

			execMode, err := parseMode(mode)
			if err != nil {
				return err
			}

			opts := session.StartOptions{
				Mode:            execMode,
				SandboxProfile:  sandboxProfile,
				Image:           image,
				NetworkIsolated: networkIsolated,
				TaskFile:        taskFile,
			}
			if allowedDomains != "" {
				opts.AllowedDomains = strings.Split(allowedDomains, ",")
			}

			rec, err := a.session.Start(cmd.Context(), name, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "started session %q on branch %s (%s)\n", rec.Name, rec.Branch, rec.WorktreePath)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "host", "launcher mode: host, sandboxed-host, or container")
	cmd.Flags().StringVar(&sandboxProfile, "profile", "", "sandbox profile for --mode sandboxed-host (standard or standard-proxied)")
	cmd.Flags().StringVar(&image, "image", "", "container image for --mode container (overrides the configured default)")
	cmd.Flags().BoolVar(&networkIsolated, "network-isolated", false, "disable container networking entirely for --mode container")
	cmd.Flags().StringVar(&allowedDomains, "allowed-domains", "", "comma-separated domains the allowlist proxy permits")
	cmd.Flags().StringVar(&taskFile, "task-file", "", "path to a task description file, recorded on the session")

	return cmd
}

func parseMode(mode string) (state.ExecutionMode, error) {
	switch mode {
	case "host", "":
		return state.ModeHost, nil
	case "sandboxed-host", "sandboxed":
		return state.ModeSandboxedHost, nil
	case "container":
		return state.ModeContainer, nil
	default:
		return "", paraerr.Validation(fmt.Sprintf("unknown --mode %q: expected host, sandboxed-host, or container", mode))
	}
}
