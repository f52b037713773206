package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/para-dev/para/internal/mcpserver"
)

func newMCPCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run Para as an MCP tool server over Streamable HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			srv := mcpserver.New(mcpserver.Config{Port: port}, a.session, a.store, a.hub, a.log)
			if err := srv.Start(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "mcp server listening at %s\n", srv.Endpoint())

			<-cmd.Context().Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Stop(stopCtx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (0 picks a free port)")

	return cmd
}
