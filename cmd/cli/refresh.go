package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sevigo/canteen-sync/internal/wire"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refreshes dish or user embeddings",
}

var refreshDishCmd = &cobra.Command{
	Use:   "dish <dishID>...",
	Short: "Refreshes the embedding of one or more dishes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		var jobID string
		if len(args) == 1 {
			jobID, err = app.Embeddings.EnqueueRefreshDish(ctx, args[0])
		} else {
			jobID, err = app.Embeddings.EnqueueRefreshDishesBatch(ctx, args)
		}
		if err != nil {
			return fmt.Errorf("failed to refresh dish embeddings: %w", err)
		}
		printJobResult(jobID)
		return nil
	},
}

var refreshCanteenCmd = &cobra.Command{
	Use:   "canteen <canteenID>",
	Short: "Refreshes embeddings for every online dish of a canteen",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		jobID, err := app.Embeddings.EnqueueRefreshCanteenDishes(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to refresh canteen embeddings: %w", err)
		}
		printJobResult(jobID)
		return nil
	},
}

var refreshUserCmd = &cobra.Command{
	Use:   "user <userID>",
	Short: "Rebuilds a user's taste profile vector and warms the feature caches",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		jobID, err := app.Embeddings.EnqueueRefreshUser(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to refresh user embedding: %w", err)
		}
		printJobResult(jobID)
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	refreshCmd.AddCommand(refreshDishCmd)
	refreshCmd.AddCommand(refreshCanteenCmd)
	refreshCmd.AddCommand(refreshUserCmd)
	rootCmd.AddCommand(refreshCmd)
}
