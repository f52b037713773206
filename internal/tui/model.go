// Package tui implements the status-monitoring TUI external collaborator: a
// live table of Para sessions, refreshed from the State Store on a timer and
// the Status Channel tailer for whichever session is selected.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/para-dev/para/internal/common/logger"
	"github.com/para-dev/para/internal/common/stringutil"
	"github.com/para-dev/para/internal/state"
	"github.com/para-dev/para/internal/status"
)

// taskColumnWidth bounds how much of a session's task text the table shows
// before ellipsis-truncating it.
const taskColumnWidth = 60

const refreshInterval = 1 * time.Second

type sessionsLoadedMsg struct {
	records []*state.Record
	err     error
}

type statusUpdatedMsg struct {
	name string
	doc  *status.Document
}

type tickMsg time.Time

// Model is the bubbletea model for `para tui`.
type Model struct {
	store *state.Store
	log   *logger.Logger

	table   table.Model
	records []*state.Record
	current string
	doc     *status.Document
	err     error

	cancelTail context.CancelFunc
}

// New constructs the TUI model bound to the State Store it reads from.
func New(store *state.Store, log *logger.Logger) Model {
	columns := []table.Column{
		{Title: "Name", Width: 20},
		{Title: "State", Width: 12},
		{Title: "Mode", Width: 16},
		{Title: "Branch", Width: 24},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	styles.Selected = styles.Selected.Bold(true)
	t.SetStyles(styles)

	return Model{store: store, log: log, table: t}
}

// Init kicks off the first load and the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(loadSessions(m.store), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func loadSessions(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		records, err := store.List(state.FilterActiveOnly)
		return sessionsLoadedMsg{records: records, err: err}
	}
}

func watchStatus(ctx context.Context, rec *state.Record, log *logger.Logger) tea.Cmd {
	return func() tea.Msg {
		stateDir := rec.WorktreePath + "/.para-state"
		tailer := status.NewTailer(stateDir, log)
		ch := make(chan *status.Document, 1)
		go tailer.Run(ctx, func(doc *status.Document) {
			select {
			case ch <- doc:
			default:
			}
		})
		select {
		case doc := <-ch:
			return statusUpdatedMsg{name: rec.Name, doc: doc}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.cancelTail != nil {
				m.cancelTail()
			}
			return m, tea.Quit
		}

	case tickMsg:
		return m, tea.Batch(loadSessions(m.store), tick())

	case sessionsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.records = msg.records
		rows := make([]table.Row, 0, len(msg.records))
		for _, rec := range msg.records {
			rows = append(rows, table.Row{rec.Name, string(rec.State), string(rec.ExecutionMode), rec.Branch})
		}
		m.table.SetRows(rows)

		selected := m.table.SelectedRow()
		if len(selected) > 0 && selected[0] != m.current {
			if m.cancelTail != nil {
				m.cancelTail()
			}
			m.current = selected[0]
			for _, rec := range m.records {
				if rec.Name == m.current {
					ctx, cancel := context.WithCancel(context.Background())
					m.cancelTail = cancel
					return m, watchStatus(ctx, rec, m.log)
				}
			}
		}
		return m, nil

	case statusUpdatedMsg:
		if msg.name == m.current {
			m.doc = msg.doc
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.err != nil {
		return fmt.Sprintf("failed to list sessions: %v\n", m.err)
	}

	out := m.table.View() + "\n"
	if m.doc != nil {
		task := stringutil.TruncateStringWithEllipsis(m.doc.Task, taskColumnWidth)
		out += fmt.Sprintf("\n%s: %s\n  blocked=%t tests=%s confidence=%s\n",
			m.current, task, m.doc.Blocked, m.doc.Tests, m.doc.Confidence)
	}
	out += "\nq: quit\n"
	return out
}
