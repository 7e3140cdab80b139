package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/lawnchairsociety/tictactoe/internal/config"
	"github.com/lawnchairsociety/tictactoe/internal/logger"
	"github.com/lawnchairsociety/tictactoe/internal/referee"
)

func main() {
	flagSet := pflag.NewFlagSet("tictactoe-server", pflag.ExitOnError)
	port := flagSet.Int("port", 0, "TCP port (overrides config)")
	wsPort := flagSet.Int("wsport", -1, "WebSocket port, 0 disables (overrides config)")
	configFile := flagSet.String("config", "data/server.yaml", "path to server config YAML file")
	loggingConfig := flagSet.String("logging", "data/logging.yaml", "path to logging config YAML file")
	flagSet.Parse(os.Args[1:])

	// Initialize logger first (before any logging)
	logConfig, logErr := logger.LoadConfig(*loggingConfig)
	closer := logger.Initialize(logConfig)
	defer closer.Close()
	if logErr != nil {
		logger.Warning("Using default logging config", "path", *loggingConfig, "error", logErr)
	}

	cfg, err := config.LoadServerConfig(*configFile)
	if err != nil {
		logger.Warning("Failed to load server config, using defaults", "path", *configFile, "error", err)
	}
	if *port > 0 {
		cfg.Port = *port
	}
	if *wsPort >= 0 {
		cfg.WebSocketPort = *wsPort
	}

	logger.Info("Starting tic-tac-toe server",
		"max_per_ip", cfg.Connections.MaxPerIP,
		"max_total", cfg.Connections.MaxTotal,
		"turn_timeout", cfg.Game.TurnTimeout)

	srv := referee.NewServer(cfg)

	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			log.Fatalf("TCP server error: %v", err)
		}
	}()

	if cfg.WebSocketPort > 0 {
		go func() {
			if err := srv.StartWebSocket(fmt.Sprintf(":%d", cfg.WebSocketPort)); err != nil {
				log.Fatalf("WebSocket server error: %v", err)
			}
		}()
	}

	logger.Info("Server running", "tcp_port", cfg.Port, "websocket_port", cfg.WebSocketPort)
	logger.Info("Press Ctrl+C to shutdown")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server")
	srv.Shutdown()
	logger.Info("Server stopped")
}
