package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"gitbridge/app/cli/cmd/client"

	"github.com/spf13/cobra"
)

// NewStatsCommand returns a new instance of a gitbridge command
func NewStatsCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "stats",
		Short: "show aggregated run outcomes",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cli, err := client.New()
			if err != nil {
				log.Fatal(err)
			}

			stats, err := cli.Stats(context.Background())
			if err != nil {
				log.Fatal(err)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintf(tw, "Succeeded:\t%d\n", stats.SuccessCount)
			fmt.Fprintf(tw, "Failed:\t%d\n", stats.FailedCount)
			fmt.Fprintf(tw, "In progress:\t%d\n", stats.InProgressCount)
			fmt.Fprintf(tw, "Average duration:\t%.0fms\n", stats.AverageDurationMs)
			tw.Flush()
		},
	}
	return command
}
