package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewRootCmd builds the para root command and its full subcommand tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "para",
		Short:         "Run AI coding agents in parallel, isolated sessions",
		Long:          "Para runs AI coding agents in parallel, each in its own git worktree and optional sandbox or container, and tracks their progress over a simple file-based Status Channel.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newStartCmd(),
		newFinishCmd(),
		newCancelCmd(),
		newRecoverCmd(),
		newResumeCmd(),
		newListCmd(),
		newStatusCmd(),
		newConfigCmd(),
		newMCPCmd(),
		newTUICmd(),
		newSuperviseCmd(),
	)

	return cmd
}
