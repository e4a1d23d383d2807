package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"gitbridge/app/cli/cmd/client"
	gclient "gitbridge/pkg/client"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type submitOpts struct {
	watch bool // --watch
}

// NewSubmitCommand returns a new instance of a gitbridge command
func NewSubmitCommand() *cobra.Command {
	var submitOpts submitOpts
	command := &cobra.Command{
		Use:   "submit",
		Short: "submit a migration run",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cli, err := client.New()
			if err != nil {
				log.Fatal(err)
			}

			configFile, err := os.Open(args[0])
			if err != nil {
				log.Fatal(errors.Errorf("cannot open file %s", args[0]))
			}
			var req gclient.SubmitRequest
			if err := json.NewDecoder(configFile).Decode(&req); err != nil {
				log.Fatal(errors.Wrapf(err, "cannot decode file %s as run configuration", args[0]))
			}
			cfg := req.RunConfig
			cfg.SourceToken = req.SourceToken
			cfg.TargetToken = req.TargetToken

			ctx := context.Background()
			runID, err := cli.Submit(ctx, cfg)
			if err != nil {
				log.Fatal(err)
			}

			if submitOpts.watch {
				if err := watch(ctx, runID); err != nil {
					log.Fatal(err)
				}
			} else {
				fmt.Printf("Run submitted with ID %s\n", runID)
			}
		},
	}
	command.Flags().BoolVarP(&submitOpts.watch, "watch", "w", false, "watch the run until it completes")

	return command
}
