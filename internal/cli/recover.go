package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/para-dev/para/internal/state"
)

func newRecoverCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "recover [name]",
		Short: "Restore a cancelled session's worktree and branch",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if list {
				return runRecoverList(cmd, a)
			}

			var name string
			if len(args) == 1 {
				name = args[0]
			}

			rec, err := a.session.Recover(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recovered session %q on branch %s (%s)\n", rec.Name, rec.Branch, rec.WorktreePath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list recoverable sessions instead of recovering one")

	return cmd
}

// runRecoverList enumerates archived records in the Recoverable state.
// Archived Finished and Cancelled records are not listed, although Recover
// accepts any archived record by name.
func runRecoverList(cmd *cobra.Command, a *app) error {
	records, err := a.store.List(state.FilterIncludeArchived)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tBRANCH\tCANCELLED AT")
	for _, rec := range records {
		if rec.State != state.Recoverable {
			continue
		}
		archivedAt := ""
		if rec.ArchivedAt != nil {
			archivedAt = rec.ArchivedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", rec.Name, rec.Branch, archivedAt)
	}
	return w.Flush()
}
