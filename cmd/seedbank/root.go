package main

import (
	"github.com/danmuck/seedbank/internal/observability"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "seedbank",
		Short:         "Generate and distribute offline educational content",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			observability.InitLogger("seedbank")
		},
	}
	root.AddCommand(
		newCreatePackageCmd(),
		newCompressVideoCmd(),
		newCreateHTMLCmd(),
		newSimulateNetworkCmd(),
		newRunServerCmd(),
		newConfigCmd(),
	)
	return root
}
