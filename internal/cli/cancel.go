package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCancelCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "cancel [name]",
		Short: "Discard a session's worktree and branch",
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

			if !force {
				if err := confirm(
					fmt.Sprintf("Cancel session %q?", name),
					"This discards the worktree and branch. Uncommitted work is lost.",
				); err != nil {
					return err
				}
			}

			rec, err := a.session.Cancel(cmd.Context(), name, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled session %q\n", rec.Name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "skip the confirmation prompt and discard uncommitted changes")

	return cmd
}
