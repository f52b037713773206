package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/para-dev/para/internal/state"
	"github.com/para-dev/para/internal/status"
)

func newStatusCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status [name]",
		Short: "Show a session's self-reported Status document",
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
			records, err := a.session.List(state.FilterActiveOnly)
			if err != nil {
				return err
			}
			rec, err := findRecord(records, name)
			if err != nil {
				return err
			}

			stateDir := filepath.Join(rec.WorktreePath, ".para-state")

			if !watch {
				doc, err := status.Read(stateDir)
				if err != nil {
					return err
				}
				printStatus(cmd, rec.Name, doc)
				return nil
			}

			tailer := status.NewTailer(stateDir, a.log)
			tailer.Run(cmd.Context(), func(doc *status.Document) {
				printStatus(cmd, rec.Name, doc)
			})
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep tailing the status document until interrupted")

	return cmd
}

func findRecord(records []*state.Record, name string) (*state.Record, error) {
	if name == "" && len(records) == 1 {
		return records[0], nil
	}
	for _, rec := range records {
		if rec.Name == name {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("no session named %q", name)
}

func printStatus(cmd *cobra.Command, name string, doc *status.Document) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, doc.Task)
	fmt.Fprintf(cmd.OutOrStdout(), "  blocked: %t\n", doc.Blocked)
	if doc.Tests != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "  tests: %s\n", doc.Tests)
	}
	if doc.Confidence != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "  confidence: %s\n", doc.Confidence)
	}
	if doc.Todos != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "  todos: %s\n", doc.Todos)
	}
	if doc.Warning != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "  warning: %s\n", doc.Warning)
	}
}
