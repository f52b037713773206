package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFinishCmd() *cobra.Command {
	var message, targetBranch string

	cmd := &cobra.Command{
		Use:   "finish [name]",
		Short: "Finalize a session's branch and archive it",
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

			rec, err := a.session.Finish(cmd.Context(), name, message, targetBranch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "finished session %q on branch %s\n", rec.Name, rec.Branch)
			if rec.Warning != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", rec.Warning)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message for uncommitted changes")
	cmd.Flags().StringVar(&targetBranch, "target-branch", "", "branch to finalize onto (defaults to the session's own branch)")

	return cmd
}
