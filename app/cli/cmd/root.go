package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCommand returns a new instance of a gitbridge command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gitbridge",
		Short: "gitbridge is the command line interface to the gitbridge migration server",
		Run: func(cmd *cobra.Command, args []string) {

		},
	}

	rootCmd.AddCommand(NewSubmitCommand())
	rootCmd.AddCommand(NewWatchCommand())
	rootCmd.AddCommand(NewGetCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewStatsCommand())
	rootCmd.AddCommand(NewCancelCommand())
	rootCmd.AddCommand(NewCleanupCommand())
	return rootCmd
}
