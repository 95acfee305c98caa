package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sevigo/canteen-sync/internal/app"
	"github.com/sevigo/canteen-sync/internal/core"
	"github.com/sevigo/canteen-sync/internal/dishsync"
	"github.com/sevigo/canteen-sync/internal/embedding"
	"github.com/sevigo/canteen-sync/internal/reviewstats"
	"github.com/sevigo/canteen-sync/internal/wire"
)

const pollInterval = 2 * time.Second

// queueNames fixes the display order of the monitored queues.
var queueNames = []string{dishsync.QueueName, reviewstats.QueueName, embedding.QueueName}

func initializeAppCmd() tea.Cmd {
	return func() tea.Msg {
		application, cleanup, err := wire.InitializeApp(context.Background())
		if err != nil {
			return appInitializedMsg{err: err}
		}
		return appInitializedMsg{app: application, cleanup: cleanup}
	}
}

func fetchStatusesCmd(application *app.App) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pollInterval)
		defer cancel()

		statuses := make(map[string]*core.QueueStatus, len(queueNames))
		for _, name := range queueNames {
			status, err := application.Inspector.QueueStatus(ctx, name)
			if err != nil {
				return statusesMsg{err: err}
			}
			statuses[name] = status
		}
		return statusesMsg{statuses: statuses}
	}
}

func pollTickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}
