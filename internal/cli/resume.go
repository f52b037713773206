package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResumeCmd() *cobra.Command {
	var extraPrompt string

	cmd := &cobra.Command{
		Use:   "resume [name]",
		Short: "Re-attach the IDE to an existing session",
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

			rec, err := a.session.Resume(cmd.Context(), name, extraPrompt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "resumed session %q (%s)\n", rec.Name, rec.WorktreePath)
			return nil
		},
	}

	cmd.Flags().StringVar(&extraPrompt, "prompt", "", "extra prompt text to hand the agent on resume")

	return cmd
}
