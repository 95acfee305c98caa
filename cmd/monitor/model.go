package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sevigo/canteen-sync/internal/app"
	"github.com/sevigo/canteen-sync/internal/core"
)

const header = "CANTEEN-SYNC QUEUE MONITOR"

type model struct {
	styles styles
	app    *app.App

	cleanup func()

	// UI Components
	table     table.Model
	spinner   spinner.Model
	isLoading bool

	statuses    map[string]*core.QueueStatus
	lastPolled  time.Time
	lastError   string
	totalActive int
}

func initialModel(theme ThemeName) *model {
	styles := GetTheme(theme)

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))

	columns := []table.Column{
		{Title: "QUEUE", Width: 24},
		{Title: "WAITING", Width: 9},
		{Title: "ACTIVE", Width: 8},
		{Title: "DELAYED", Width: 9},
		{Title: "COMPLETED", Width: 11},
		{Title: "FAILED", Width: 8},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(len(queueNames)+1),
	)

	return &model{
		styles:    styles,
		spinner:   sp,
		table:     t,
		isLoading: true,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(initializeAppCmd(), m.spinner.Tick)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tbCmd tea.Cmd
		spCmd tea.Cmd
	)

	m.table, tbCmd = m.table.Update(msg)
	m.spinner, spCmd = m.spinner.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			if m.cleanup != nil {
				m.cleanup()
			}
			return m, tea.Quit
		case "r":
			if m.app != nil {
				m.isLoading = true
				return m, tea.Batch(m.spinner.Tick, fetchStatusesCmd(m.app))
			}
		}

	case appInitializedMsg:
		if msg.err != nil {
			m.isLoading = false
			m.lastError = msg.err.Error()
			return m, nil
		}
		m.app = msg.app
		m.cleanup = msg.cleanup
		return m, fetchStatusesCmd(m.app)

	case statusesMsg:
		m.isLoading = false
		m.lastPolled = time.Now()
		if msg.err != nil {
			m.lastError = msg.err.Error()
			return m, pollTickCmd()
		}
		m.lastError = ""
		m.statuses = msg.statuses
		m.refreshTable()
		return m, pollTickCmd()

	case pollTickMsg:
		if m.app != nil {
			return m, fetchStatusesCmd(m.app)
		}

	case errorMsg:
		m.isLoading = false
		m.lastError = msg.err.Error()
		return m, nil

	case tea.WindowSizeMsg:
		m.styles.header = m.styles.header.Width(msg.Width - 4)
	}

	return m, tea.Batch(tbCmd, spCmd)
}

func (m *model) refreshTable() {
	rows := make([]table.Row, 0, len(queueNames))
	m.totalActive = 0
	for _, name := range queueNames {
		s := m.statuses[name]
		if s == nil {
			rows = append(rows, table.Row{name, "-", "-", "-", "-", "-"})
			continue
		}
		m.totalActive += s.Active
		rows = append(rows, table.Row{
			name,
			strconv.Itoa(s.Waiting),
			strconv.Itoa(s.Active),
			strconv.Itoa(s.Delayed),
			strconv.Itoa(s.Completed),
			strconv.Itoa(s.Failed),
		})
	}
	m.table.SetRows(rows)
}

func (m *model) View() string {
	if m.app == nil && m.lastError == "" {
		return fmt.Sprintf("\n  %s CONNECTING TO QUEUES...\n\n", m.spinner.View())
	}

	var statusParts []string
	if m.lastPolled.IsZero() {
		statusParts = append(statusParts, "POLLED: never")
	} else {
		statusParts = append(statusParts, fmt.Sprintf("POLLED: %s", m.lastPolled.Format("15:04:05")))
	}
	statusParts = append(statusParts, fmt.Sprintf("ACTIVE JOBS: %d", m.totalActive))
	if m.isLoading {
		statusParts = append(statusParts, m.spinner.View()+" REFRESHING")
	}

	status := m.styles.inactive.Render(strings.Join(statusParts, " │ "))

	body := m.styles.table.Render(m.table.View())
	if m.lastError != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", m.styles.error.Render("⚠ "+m.lastError))
	}

	return m.styles.app.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.styles.header.Render(header),
			body,
			m.styles.footer.Render(m.styles.inactive.Render("r: refresh │ q: quit")),
			status,
		),
	)
}
