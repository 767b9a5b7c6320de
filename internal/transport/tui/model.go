// Package tui implements ghostctl's "top" view: a live table of
// ConnectionRecords refreshed on a timer, grounded on supervizio-daemon's
// tick-driven Bubble Tea model (infrastructure/transport/tui/
// interactive.go's tea.Tick/tickMsg loop) and on gophpeek-phpeek-pm's
// cobra-invokes-bubbletea wiring (cmd/phpeek-pm/tui.go), rendered with
// charmbracelet/bubbles' table widget instead of the teacher's
// hand-rolled ANSI table.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ghostrunctl/ghost/internal/domain/ghost"
)

// refreshInterval is how often the model polls Fetcher.
const refreshInterval = 2 * time.Second

// Fetcher retrieves every known connection, typically
// backed by a cliclient.Client issuing the "connections" command.
type Fetcher func(ctx context.Context) ([]ghost.ConnectionRecord, error)

type tickMsg time.Time

type dataMsg struct {
	records []ghost.ConnectionRecord
	err     error
}

// Model is the Bubble Tea model for `ghostctl top`.
type Model struct {
	fetch   Fetcher
	table   table.Model
	lastErr error
	width   int
	height  int
}

// New builds a Model that polls fetch every refreshInterval.
func New(fetch Fetcher) Model {
	columns := []table.Column{
		{Title: "ID", Width: 20},
		{Title: "Type", Width: 12},
		{Title: "Status", Width: 14},
		{Title: "CPU%", Width: 8},
		{Title: "Mem(MB)", Width: 10},
		{Title: "Last Seen", Width: 20},
	}
	t := table.New(table.WithColumns(columns), table.WithFocused(false), table.WithHeight(20))
	style := table.DefaultStyles()
	style.Header = style.Header.Bold(true).BorderBottom(true)
	style.Selected = lipgloss.NewStyle()
	t.SetStyles(style)

	return Model{fetch: fetch, table: t}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tea.EnterAltScreen)
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshInterval)
		defer cancel()
		records, err := m.fetch(ctx)
		return dataMsg{records: records, err: err}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetHeight(msg.Height - 6)
	case tickMsg:
		return m, m.refresh()
	case dataMsg:
		m.lastErr = msg.err
		if msg.err == nil {
			m.table.SetRows(toRows(msg.records))
		}
		return m, m.tick()
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	header := lipgloss.NewStyle().Bold(true).Render("ghost top") + "  (q to quit)\n\n"
	if m.lastErr != nil {
		return header + fmt.Sprintf("error refreshing: %v\n\n%s", m.lastErr, m.table.View())
	}
	return header + m.table.View()
}

func toRows(records []ghost.ConnectionRecord) []table.Row {
	rows := make([]table.Row, 0, len(records))
	for _, rec := range records {
		cpu, mem := "-", "-"
		if rec.LastMetrics != nil {
			cpu = fmt.Sprintf("%.1f", rec.LastMetrics.CPUPercentage)
			mem = fmt.Sprintf("%.1f", float64(rec.LastMetrics.MemoryBytes)/(1024*1024))
		}
		rows = append(rows, table.Row{
			rec.ID,
			rec.Metadata.Type,
			rec.Status.String(),
			cpu,
			mem,
			rec.LastSeen.Format("15:04:05"),
		})
	}
	return rows
}
