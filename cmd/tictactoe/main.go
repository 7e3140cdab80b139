package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/lawnchairsociety/tictactoe/internal/address"
	"github.com/lawnchairsociety/tictactoe/internal/config"
	"github.com/lawnchairsociety/tictactoe/internal/logger"
	"github.com/lawnchairsociety/tictactoe/internal/ui"
)

// errCancelled is returned when the player closes the address form.
var errCancelled = errors.New("cancelled")

func main() {
	if err := run(); err != nil {
		if !errors.Is(err, errCancelled) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run() error {
	var (
		host, transportKind     string
		port, limit             int
		configPath, loggingPath string
		dbPath                  string
		headless, noHistory     bool
	)

	flagSet := pflag.NewFlagSet("tictactoe", pflag.ContinueOnError)
	flagSet.StringVar(&host, "host", "", "server host name or IP address")
	flagSet.IntVar(&port, "port", 0, "server port")
	flagSet.StringVar(&configPath, "config", "data/client.yaml", "path to client config YAML file")
	flagSet.StringVar(&loggingPath, "logging", "data/logging.yaml", "path to logging config YAML file")
	flagSet.StringVar(&transportKind, "transport", "", "tcp or websocket (overrides config)")
	flagSet.BoolVar(&headless, "headless", false, "use the line console instead of the full-screen board")
	flagSet.StringVar(&dbPath, "db", "", "sqlite match history file (overrides config)")
	flagSet.BoolVar(&noHistory, "no-history", false, "do not record this game")
	flagSet.IntVar(&limit, "limit", 10, "number of matches shown by the history command")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	cfg, err := config.LoadClientConfig(configPath)
	if err != nil {
		return err
	}
	if transportKind != "" {
		cfg.Transport = transportKind
	}
	if dbPath != "" {
		cfg.History.Driver, cfg.History.Path = "sqlite", dbPath
	}
	if noHistory {
		cfg.History.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	interactive := !headless &&
		term.IsTerminal(int(os.Stdin.Fd())) &&
		term.IsTerminal(int(os.Stdout.Fd()))

	logConfig, logErr := logger.LoadConfig(loggingPath)
	if interactive {
		// Anything on stderr would tear the board.
		logConfig.ConsoleEnabled = false
		logConfig.FileEnabled = true
	}
	closer := logger.Initialize(logConfig)
	defer closer.Close()
	if logErr != nil {
		logger.Warning("Using default logging config", "path", loggingPath, "error", logErr)
	}

	args := flagSet.Args()
	if len(args) > 0 {
		if args[0] != "history" || len(args) > 1 {
			return fmt.Errorf("unexpected argument: %s", args[0])
		}
		return showHistory(os.Stdout, cfg, limit)
	}

	addr, err := resolveAddress(flagSet, cfg, host, port, interactive)
	if err != nil {
		return err
	}

	return play(cfg, addr, interactive)
}

// resolveAddress uses --host/--port when given, otherwise the form (on a
// terminal) or the configured server.
func resolveAddress(flagSet *pflag.FlagSet, cfg *config.ClientConfig, host string, port int, interactive bool) (address.Address, error) {
	if !flagSet.Changed("host") {
		host = cfg.Server.Host
	}
	if !flagSet.Changed("port") {
		port = cfg.Server.Port
	}

	if flagSet.Changed("host") || flagSet.Changed("port") || !interactive {
		return address.Parse(host, strconv.Itoa(port))
	}

	addr, ok, err := ui.RunForm(host, port)
	if err != nil {
		return address.Address{}, err
	}
	if !ok {
		return address.Address{}, errCancelled
	}
	return addr, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `tictactoe: play tic-tac-toe against another player on a server.

Without --host or --port an address form is shown. When stdin is not a
terminal (or with --headless) moves are typed as "row col".

Usage:
  tictactoe [flags]
  tictactoe history [--limit N]

Flags:
%s`, flagSet.FlagUsages())
}
