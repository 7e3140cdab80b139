// Package ui is the terminal front end: the board, the address form and a
// line console for non-interactive terminals. It talks to the network only
// through the netclient queues.
package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lawnchairsociety/tictactoe/internal/game"
	"github.com/lawnchairsociety/tictactoe/internal/logger"
	"github.com/lawnchairsociety/tictactoe/internal/netclient"
	"github.com/lawnchairsociety/tictactoe/internal/protocol"
)

// eventMsg carries one network event into the model.
type eventMsg struct {
	event protocol.Event
}

// submitErrMsg reports a move that could not be queued.
type submitErrMsg struct {
	err error
}

// Model is the bubbletea board. The zero value is not usable; use NewModel.
type Model struct {
	ctx      context.Context
	requests *netclient.RequestQueue
	events   *netclient.EventQueue

	keys   KeyMap
	help   help.Model
	title  string
	state  game.State
	row    int
	col    int
	reason string // set once the connection is gone
}

// NewModel creates a board bound to the given queues.
func NewModel(ctx context.Context, title string, requests *netclient.RequestQueue, events *netclient.EventQueue) Model {
	return Model{
		ctx:      ctx,
		requests: requests,
		events:   events,
		keys:     DefaultKeyMap,
		help:     help.New(),
		title:    title,
		state:    game.NewState(),
		row:      1,
		col:      1,
	}
}

// State returns the current game state.
func (m Model) State() game.State {
	return m.state
}

// Disconnected returns the reason the connection ended, or "".
func (m Model) Disconnected() string {
	return m.reason
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return listenForEvent(m.ctx, m.events)
}

// listenForEvent returns a tea.Cmd that blocks until the network pushes an
// event, then delivers it as an eventMsg.
func listenForEvent(ctx context.Context, events *netclient.EventQueue) tea.Cmd {
	return func() tea.Msg {
		ev, err := events.Next(ctx)
		if err != nil {
			return nil
		}
		return eventMsg{event: ev}
	}
}

func submit(ctx context.Context, requests *netclient.RequestQueue, req protocol.Request) tea.Cmd {
	return func() tea.Msg {
		if err := requests.Submit(ctx, req); err != nil {
			return submitErrMsg{err: err}
		}
		return nil
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m.handleEvent(msg.event)

	case submitErrMsg:
		logger.Warning("Move not sent", "error", msg.err)
		m.state = game.Unselect(m.state)
		m.state.Status = "Move not sent: " + msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil
	}
	return m, nil
}

func (m Model) handleEvent(ev protocol.Event) (tea.Model, tea.Cmd) {
	if ev.IsError() {
		// No further events follow an error.
		logger.Info("Connection ended", "reason", ev.Data)
		m.reason = ev.Data
		return m, nil
	}

	next, err := game.Apply(m.state, ev.Data)
	if err != nil {
		logger.Warning("Ignoring server line", "line", ev.Data, "error", err)
	}
	m.state = next
	return m, listenForEvent(m.ctx, m.events)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Once the game is over or the connection is gone any key leaves.
	if m.reason != "" || m.state.GameOver || key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.row = max(m.row-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.row = min(m.row+1, game.Size-1)
	case key.Matches(msg, m.keys.Left):
		m.col = max(m.col-1, 0)
	case key.Matches(msg, m.keys.Right):
		m.col = min(m.col+1, game.Size-1)
	case key.Matches(msg, m.keys.Cell):
		n := int(msg.String()[0] - '1')
		m.row, m.col = n/game.Size, n%game.Size
		return m.place()
	case key.Matches(msg, m.keys.Place):
		return m.place()
	}
	return m, nil
}

func (m Model) place() (tea.Model, tea.Cmd) {
	next, req, ok := game.Select(m.state, m.row, m.col)
	if !ok {
		return m, nil
	}
	m.state = next
	return m, submit(m.ctx, m.requests, req)
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	title := m.title
	if m.state.Token != "" {
		title += "  ·  you are " + tokenStyle(m.state.Token).Render(m.state.Token)
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	rows := make([]string, game.Size)
	for r := 0; r < game.Size; r++ {
		cells := make([]string, game.Size)
		for c := 0; c < game.Size; c++ {
			style := cellStyle
			if r == m.row && c == m.col && !m.state.GameOver && m.reason == "" {
				style = cursorCellStyle
			}
			token := m.state.Board[r][c]
			cells[c] = style.Render(tokenStyle(token).Render(token))
		}
		rows[r] = lipgloss.JoinHorizontal(lipgloss.Top, cells...)
	}
	b.WriteString(lipgloss.JoinVertical(lipgloss.Left, rows...))
	b.WriteString("\n")

	b.WriteString(statusStyle.Render(m.state.Status))
	b.WriteString("\n")

	if m.reason != "" {
		b.WriteString(errorStyle.Render(capitalize(m.reason)))
		b.WriteString("\n")
		b.WriteString(faintStyle.Render("press any key to exit"))
	} else {
		b.WriteString(m.help.View(m.keys))
	}
	b.WriteString("\n")
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
