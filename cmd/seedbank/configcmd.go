package main

import (
	"fmt"

	"github.com/danmuck/seedbank/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or validate topology and server config files",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigValidateCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		kind, output string
		force        bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config template",
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := output
			if target == "" {
				target = kind + ".toml"
			}
			if err := config.WriteTemplate(target, kind, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s config template to %s\n", kind, target)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "topology", "config kind: topology|server")
	cmd.Flags().StringVar(&output, "output", "", "output path (defaults to <kind>.toml)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate an existing config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			switch kind {
			case "topology":
				if _, err := config.LoadTopology(path); err != nil {
					return err
				}
			case "server":
				cfg, err := loadServerConfig(path)
				if err != nil {
					return err
				}
				if cfg.Topology != "" {
					if _, err := serverNode(cfg); err != nil {
						return err
					}
				}
			default:
				return fmt.Errorf("unknown kind: %s", kind)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Validated %s config at %s\n", kind, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "topology", "config kind: topology|server")
	return cmd
}
