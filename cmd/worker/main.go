package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sevigo/canteen-sync/internal/wire"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker failed to run", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker, cleanup, err := wire.InitializeWorker(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize worker: %w", err)
	}
	defer cleanup()

	slog.Info("starting canteen-sync worker")

	errCh := make(chan error, 1)
	go func() {
		errCh <- worker.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		slog.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("worker stopped unexpectedly: %w", err)
		}
		return nil
	}

	worker.Shutdown()
	return nil
}
