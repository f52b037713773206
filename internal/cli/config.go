package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/para-dev/para/internal/common/config"
	"github.com/para-dev/para/internal/wizard"
)

func newConfigCmd() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit Para's configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if !interactive {
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			updated, err := wizard.Run(cfg)
			if err != nil {
				return err
			}
			dir := config.DefaultConfigDir()
			if err := config.Save(updated, dir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote configuration to %s/config.yaml\n", dir)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "walk through an interactive setup wizard and save the result")

	return cmd
}
