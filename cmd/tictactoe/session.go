package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lawnchairsociety/tictactoe/internal/address"
	"github.com/lawnchairsociety/tictactoe/internal/config"
	"github.com/lawnchairsociety/tictactoe/internal/game"
	"github.com/lawnchairsociety/tictactoe/internal/history"
	"github.com/lawnchairsociety/tictactoe/internal/logger"
	"github.com/lawnchairsociety/tictactoe/internal/netclient"
	"github.com/lawnchairsociety/tictactoe/internal/transport"
	"github.com/lawnchairsociety/tictactoe/internal/ui"
)

func netOptions(cfg *config.ClientConfig) netclient.Options {
	return netclient.Options{
		Transport:     transport.Kind(cfg.Transport),
		WebSocketPath: cfg.WebSocketPath,
		DialTimeout:   cfg.DialTimeout,
		DrainTimeout:  cfg.DrainTimeout,
		MaxLineLength: cfg.MaxLineLength,
	}
}

func historyConfig(cfg config.HistoryConfig) history.Config {
	if cfg.Driver == string(history.DialectPostgres) {
		return history.Config{Driver: cfg.Driver, Postgres: history.PostgresConfigFromDSN(cfg.DSN)}
	}
	return history.DefaultConfig(cfg.Path)
}

// play runs the display and the network client side by side. Whichever
// finishes first ends the session: the display closing stops the network,
// and a network failure reaches the display as an error event.
func play(cfg *config.ClientConfig, addr address.Address, interactive bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	requests := netclient.NewRequestQueue(cfg.SubmitTimeout)
	events := netclient.NewEventQueue()

	started := time.Now()
	netDone := make(chan error, 1)
	go func() {
		netDone <- netclient.Run(ctx, addr, requests, events, netOptions(cfg))
	}()

	var (
		state game.State
		err   error
	)
	if interactive {
		state, err = runBoard(ctx, addr, requests, events)
	} else {
		state, err = ui.RunConsole(ctx, os.Stdin, os.Stdout, requests, events)
	}
	requests.Close()

	if netErr := <-netDone; netErr != nil {
		logger.Debug("Network client ended with error", "error", netErr)
	}

	if cfg.History.Enabled {
		recordMatch(cfg.History, addr, state, started)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runBoard(ctx context.Context, addr address.Address, requests *netclient.RequestQueue, events *netclient.EventQueue) (game.State, error) {
	model := ui.NewModel(ctx, "tic-tac-toe @ "+addr.String(), requests, events)
	final, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		err = nil
	}

	m, ok := final.(ui.Model)
	if !ok {
		return game.NewState(), err
	}
	if reason := m.Disconnected(); reason != "" && !m.State().GameOver {
		fmt.Fprintf(os.Stderr, "Disconnected: %s\n", reason)
	}
	return m.State(), err
}

// recordMatch saves games that got as far as a token assignment. Failures
// are logged; losing a history row never fails the session.
func recordMatch(cfg config.HistoryConfig, addr address.Address, state game.State, started time.Time) {
	if state.Token == "" {
		return
	}

	store, err := history.Open(historyConfig(cfg))
	if err != nil {
		logger.Warning("Match history unavailable", "error", err)
		return
	}
	defer store.Close()

	m, err := store.Record(history.Match{
		Server:    addr.String(),
		Token:     state.Token,
		Winner:    state.Winner,
		Outcome:   state.Outcome(),
		Moves:     state.Board.Moves(),
		StartedAt: started,
		EndedAt:   time.Now(),
	})
	if err != nil {
		logger.Warning("Failed to record match", "error", err)
		return
	}
	logger.Info("Match recorded", "id", m.ID, "outcome", m.Outcome)
}

func showHistory(w io.Writer, cfg *config.ClientConfig, limit int) error {
	store, err := history.Open(historyConfig(cfg.History))
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats()
	if err != nil {
		return err
	}
	matches, err := store.Recent(limit)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%d games: %d won, %d lost, %d drawn, %d unfinished\n",
		stats.Total(), stats.Won, stats.Lost, stats.Draw, stats.Aborted)
	for _, m := range matches {
		fmt.Fprintf(w, "%s  %-7s as %s vs %s (%d moves)\n",
			m.EndedAt.Local().Format("2006-01-02 15:04"), m.Outcome, m.Token, m.Server, m.Moves)
	}
	return nil
}
