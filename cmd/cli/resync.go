package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sevigo/canteen-sync/internal/wire"
)

var (
	windowNumber string
	windowFloor  string
)

var resyncCmd = &cobra.Command{
	Use:   "resync",
	Short: "Re-runs denormalization sync for canteen, window, or floor changes",
}

var resyncCanteenCmd = &cobra.Command{
	Use:   "canteen-name <canteenID> <newName>",
	Short: "Propagates a canteen rename into all of its dishes",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		jobID, err := app.DishSync.SyncCanteenName(ctx, args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to sync canteen name: %w", err)
		}
		printJobResult(jobID)
		return nil
	},
}

var resyncWindowCmd = &cobra.Command{
	Use:   "window-info <windowID> <newName>",
	Short: "Propagates a window rename, and optionally a new number or floor",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		var number, floorID *string
		if cmd.Flags().Changed("number") {
			number = &windowNumber
		}
		if cmd.Flags().Changed("floor-id") {
			floorID = &windowFloor
		}

		jobID, err := app.DishSync.SyncWindowInfo(ctx, args[0], args[1], number, floorID)
		if err != nil {
			return fmt.Errorf("failed to sync window info: %w", err)
		}
		printJobResult(jobID)
		return nil
	},
}

var resyncFloorCmd = &cobra.Command{
	Use:   "floor-info <floorID> <newName> <newLevel>",
	Short: "Propagates a floor rename and level change into its dishes",
	Args:  cobra.ExactArgs(3),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		jobID, err := app.DishSync.SyncFloorInfo(ctx, args[0], args[1], args[2])
		if err != nil {
			return fmt.Errorf("failed to sync floor info: %w", err)
		}
		printJobResult(jobID)
		return nil
	},
}

func printJobResult(jobID string) {
	if jobID == "" {
		fmt.Println("done (executed inline)")
		return
	}
	fmt.Printf("queued job %s\n", jobID)
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	resyncWindowCmd.Flags().StringVar(&windowNumber, "number", "", "New window number, e.g. A1")
	resyncWindowCmd.Flags().StringVar(&windowFloor, "floor-id", "", "ID of the floor the window moved to")

	resyncCmd.AddCommand(resyncCanteenCmd)
	resyncCmd.AddCommand(resyncWindowCmd)
	resyncCmd.AddCommand(resyncFloorCmd)
	rootCmd.AddCommand(resyncCmd)
}
