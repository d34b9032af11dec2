package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/framescan/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration files",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.settings().YAML()
			if err != nil {
				return fmt.Errorf("failed to render configuration: %w", err)
			}
			if _, err := cmd.OutOrStdout().Write(out); err != nil {
				return err
			}
			if info, _ := cmd.Flags().GetBool("info"); info {
				a.loader.PrintConfigInfo(cmd.ErrOrStderr())
			}
			return nil
		},
	}
	show.Flags().Bool("info", false, "print the config file and search paths to stderr")

	initCmd := &cobra.Command{
		Use:   "init [file]",
		Short: "Write the default configuration to a file (default: framescan.yaml)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := config.ConfigFileName + ".yaml"
			if len(args) == 1 {
				file = args[0]
			}
			if err := config.GenerateDefaultConfigFile(file); err != nil {
				return fmt.Errorf("failed to write configuration: %w", err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", file)
			return err
		},
	}

	cmd.AddCommand(show, initCmd)
	return cmd
}
