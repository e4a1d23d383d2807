package cmd

import (
	"context"
	"fmt"
	"log"

	"gitbridge/app/cli/cmd/client"

	"github.com/spf13/cobra"
)

// NewCancelCommand returns a new instance of a gitbridge command
func NewCancelCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "cancel",
		Short: "cancel the in-flight source fetch of a run",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cli, err := client.New()
			if err != nil {
				log.Fatal(err)
			}

			cancelled, err := cli.CancelFetch(context.Background(), args[0])
			if err != nil {
				log.Fatal(err)
			}
			if cancelled {
				fmt.Printf("Fetch of %s cancelled\n", args[0])
			} else {
				fmt.Printf("No fetch in flight for %s\n", args[0])
			}
		},
	}
	return command
}
