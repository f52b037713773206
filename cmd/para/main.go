// Command para is the CLI entrypoint: a thin wrapper that wires the root
// cobra command to an interrupt-cancellable context and translates the
// returned error into one of the exit codes enumerated in spec §6.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/para-dev/para/internal/cli"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	rootCmd := cli.NewRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(rootCmd.OutOrStderr(), err)
	}
	os.Exit(cli.ExitCodeFor(err))
}
