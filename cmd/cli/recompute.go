package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sevigo/canteen-sync/internal/wire"
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute <dishID>",
	Short: "Recomputes a dish's review count and average rating from approved reviews",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		jobID, err := app.ReviewStats.RecomputeDishStats(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to recompute review stats: %w", err)
		}
		printJobResult(jobID)
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.AddCommand(recomputeCmd)
}
