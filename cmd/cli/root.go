package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	queueBackend string
)

var rootCmd = &cobra.Command{
	Use:   "canteen-cli",
	Short: "canteen-cli is the command-line interface for canteen-sync.",
	Long:  `A CLI for managing the canteen consistency pipelines: inspecting queues and triggering denormalization syncs, review-stat recomputes, and embedding refreshes.`,
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&queueBackend, "backend", "b", "", "Queue backend (redis or memory)")

	if err := viper.BindPFlag("QUEUE_BACKEND", rootCmd.PersistentFlags().Lookup("backend")); err != nil {
		slog.Error("Error binding flag", "error", err)
		os.Exit(1)
	}
}

// initConfig reads in ENV variables if set.
func initConfig() {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
