package cmd

import (
	"context"
	"fmt"
	"log"

	"gitbridge/app/cli/cmd/client"

	"github.com/spf13/cobra"
)

type cleanupOpts struct {
	days int // --days
}

// NewCleanupCommand returns a new instance of a gitbridge command
func NewCleanupCommand() *cobra.Command {
	var cleanupOpts cleanupOpts
	command := &cobra.Command{
		Use:   "cleanup",
		Short: "delete finished runs older than the given number of days",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cli, err := client.New()
			if err != nil {
				log.Fatal(err)
			}

			deleted, err := cli.Cleanup(context.Background(), cleanupOpts.days)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Printf("Deleted %d runs\n", deleted)
		},
	}
	command.Flags().IntVar(&cleanupOpts.days, "days", 30, "delete finished runs older than this many days")

	return command
}
