package main

import (
	"github.com/sevigo/canteen-sync/internal/app"
	"github.com/sevigo/canteen-sync/internal/core"
)

// Indicates that the core application services have been initialized.
type appInitializedMsg struct {
	app     *app.App
	cleanup func()
	err     error
}

// Carries one polling round of queue statuses, keyed by queue name.
type statusesMsg struct {
	statuses map[string]*core.QueueStatus
	err      error
}

// Fires when the next polling round is due.
type pollTickMsg struct{}

// A generic error message for reporting failures from commands.
type errorMsg struct{ err error }

func (e errorMsg) Error() string {
	return e.err.Error()
}
