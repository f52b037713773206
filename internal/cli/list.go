package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/para-dev/para/internal/state"
)

func newListCmd() *cobra.Command {
	var includeArchived bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions and their lifecycle state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			filter := state.FilterActiveOnly
			if includeArchived {
				filter = state.FilterIncludeArchived
			}

			records, err := a.session.List(filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTATE\tMODE\tBRANCH\tWORKTREE")
			for _, rec := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", rec.Name, rec.State, rec.ExecutionMode, rec.Branch, rec.WorktreePath)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&includeArchived, "all", false, "include finished, cancelled, and recoverable sessions")

	return cmd
}
