package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sevigo/canteen-sync/internal/core"
	"github.com/sevigo/canteen-sync/internal/dishsync"
	"github.com/sevigo/canteen-sync/internal/embedding"
	"github.com/sevigo/canteen-sync/internal/reviewstats"
	"github.com/sevigo/canteen-sync/internal/wire"
)

var outputJSON bool

var statusCmd = &cobra.Command{
	Use:   "status [queue]",
	Short: "Shows job counts per state for one or all pipeline queues",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		queueNames := []string{dishsync.QueueName, reviewstats.QueueName, embedding.QueueName}
		if len(args) == 1 {
			queueNames = []string{args[0]}
		}

		statuses := make(map[string]*core.QueueStatus, len(queueNames))
		for _, name := range queueNames {
			status, err := app.Inspector.QueueStatus(ctx, name)
			if err != nil {
				return fmt.Errorf("failed to read status of queue %s: %w", name, err)
			}
			statuses[name] = status
		}

		if outputJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(statuses)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "QUEUE\tWAITING\tACTIVE\tDELAYED\tCOMPLETED\tFAILED")
		for _, name := range queueNames {
			s := statuses[name]
			if s == nil {
				fmt.Fprintf(w, "%s\t-\t-\t-\t-\t-\n", name)
				continue
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n",
				name, s.Waiting, s.Active, s.Delayed, s.Completed, s.Failed)
		}
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	statusCmd.Flags().BoolVar(&outputJSON, "json", false, "Output status as JSON")
	rootCmd.AddCommand(statusCmd)
}
