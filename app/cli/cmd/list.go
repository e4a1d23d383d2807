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

type listOpts struct {
	page     int // --page
	pageSize int // --page-size
}

// NewListCommand returns a new instance of a gitbridge command
func NewListCommand() *cobra.Command {
	var listOpts listOpts
	command := &cobra.Command{
		Use:   "list",
		Short: "list your migration runs, most recent first",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cli, err := client.New()
			if err != nil {
				log.Fatal(err)
			}

			res, err := cli.ListRuns(context.Background(), listOpts.page, listOpts.pageSize)
			if err != nil {
				log.Fatal(err)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTATUS\tSOURCE\tTARGET\tSTARTED")
			for _, run := range res.Runs {
				started := ""
				if run.StartTime != nil {
					started = run.StartTime.Format("2 Jan 2006 15:04:05")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", run.ID, run.Status, run.Configuration.SourceRepoURL, run.Configuration.TargetProject, started)
			}
			tw.Flush()
			fmt.Printf("\nPage %d/%d, %d runs total\n", res.Page, res.TotalPages, res.Total)
		},
	}
	command.Flags().IntVar(&listOpts.page, "page", 1, "page to display")
	command.Flags().IntVar(&listOpts.pageSize, "page-size", 20, "number of runs per page")

	return command
}
