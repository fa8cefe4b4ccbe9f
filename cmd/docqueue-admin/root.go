package main

import (
	"github.com/spf13/cobra"
)

type outputFlags struct {
	json bool
}

func newRootCommand(ctx *commandContext) *cobra.Command {
	out := &outputFlags{}

	rootCmd := &cobra.Command{
		Use:           "docqueue-admin",
		Short:         "Operator tooling for the document queue",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().BoolVar(&out.json, "json", false, "Write machine-readable JSON")

	rootCmd.AddCommand(
		newOverviewCommand(ctx, out),
		newPendingCommand(ctx, out),
		newCancelAllCommand(ctx, out),
		newHistoryCommand(ctx, out),
		newDeleteArtifactCommand(ctx),
		newMigrateCommand(ctx),
	)
	return rootCmd
}
