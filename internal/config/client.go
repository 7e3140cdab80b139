package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ClientConfig holds settings for the game client.
type ClientConfig struct {
	// Server is the default address; flags and the address form override it.
	Server ServerAddress `yaml:"server"`

	// Transport is "tcp" or "websocket".
	Transport     string `yaml:"transport"`
	WebSocketPath string `yaml:"websocket_path"`

	DialTimeout   time.Duration `yaml:"dial_timeout"`
	DrainTimeout  time.Duration `yaml:"drain_timeout"`
	SubmitTimeout time.Duration `yaml:"submit_timeout"`
	MaxLineLength int           `yaml:"max_line_length"`

	History HistoryConfig `yaml:"history"`
}

// ServerAddress is an unvalidated host and port.
type ServerAddress struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// HistoryConfig selects where finished games are recorded.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"` // "sqlite" or "postgres"
	Path    string `yaml:"path"`   // sqlite file
	DSN     string `yaml:"dsn"`    // postgres connection string
}

// DefaultClientConfig returns the settings used without a config file.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Server:        ServerAddress{Host: "127.0.0.1", Port: 4000},
		Transport:     "tcp",
		WebSocketPath: "/ws",
		DialTimeout:   5 * time.Second,
		DrainTimeout:  time.Second,
		SubmitTimeout: 2 * time.Second,
		MaxLineLength: 4096,
		History: HistoryConfig{
			Enabled: true,
			Driver:  "sqlite",
			Path:    "data/history.db",
		},
	}
}

// LoadClientConfig loads client configuration from a YAML file. A missing
// file yields the defaults; an invalid one is an error.
func LoadClientConfig(path string) (*ClientConfig, error) {
	config := DefaultClientConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, fmt.Errorf("failed to read client config: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultClientConfig(), fmt.Errorf("failed to parse client config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return DefaultClientConfig(), err
	}
	return config, nil
}

// Validate checks values that would otherwise fail much later.
func (c *ClientConfig) Validate() error {
	switch c.Transport {
	case "tcp", "websocket":
	default:
		return fmt.Errorf("unknown transport %q (want tcp or websocket)", c.Transport)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}

	if c.History.Enabled {
		switch c.History.Driver {
		case "sqlite":
			if c.History.Path == "" {
				return fmt.Errorf("history.path is required for sqlite")
			}
		case "postgres":
			if c.History.DSN == "" {
				return fmt.Errorf("history.dsn is required for postgres")
			}
		default:
			return fmt.Errorf("unknown history driver %q", c.History.Driver)
		}
	}

	return nil
}
