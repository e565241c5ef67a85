package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *Command) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration in effect, after the config file,
the environment and the command line overrides have been applied.

The output may be saved and used as a config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.configFor(cmd)
			if err != nil {
				return err
			}

			if err := cfg.EncodeYAML(c.Out); err != nil {
				return fmt.Errorf("printing config: %w", err)
			}

			return nil
		},
	}
}
