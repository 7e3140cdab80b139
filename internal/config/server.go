// Package config loads YAML configuration for the client and the reference
// server. Missing files fall back to defaults.
package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds reference server settings.
type ServerConfig struct {
	Port          int               `yaml:"port"`
	WebSocketPort int               `yaml:"websocket_port"` // 0 disables the WebSocket listener
	WebSocket     WebSocketConfig   `yaml:"websocket"`
	Connections   ConnectionsConfig `yaml:"connections"`
	Game          GameConfig        `yaml:"game"`
}

// ConnectionsConfig holds connection limit settings.
type ConnectionsConfig struct {
	// MaxPerIP is the maximum concurrent connections allowed from a single IP address.
	// 0 means unlimited.
	MaxPerIP int `yaml:"max_per_ip"`

	// MaxTotal is the maximum total concurrent connections to the server.
	// 0 means unlimited.
	MaxTotal int `yaml:"max_total"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// Path is where upgrades are accepted.
	Path string `yaml:"path"`

	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	// Use "*" to allow all origins (not recommended for production).
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum WebSocket message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// GameConfig controls refereeing.
type GameConfig struct {
	// HandshakeTimeout is how long a client has to echo TICTACTOE.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`

	// TurnTimeout ends a game when the player on turn stays silent. 0 waits forever.
	TurnTimeout time.Duration `yaml:"turn_timeout"`
}

// DefaultServerConfig returns a ServerConfig with conservative defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:          4000,
		WebSocketPort: 4443,
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			AllowedOrigins: []string{}, // Same-origin only by default
			MaxMessageSize: 4096,
		},
		Connections: ConnectionsConfig{
			MaxPerIP: 4,
			MaxTotal: 200,
		},
		Game: GameConfig{
			HandshakeTimeout: 5 * time.Second,
			TurnTimeout:      2 * time.Minute,
		},
	}
}

// LoadServerConfig loads server configuration from a YAML file.
// If the file doesn't exist, returns default config.
func LoadServerConfig(path string) (*ServerConfig, error) {
	config := DefaultServerConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultServerConfig(), err
	}

	return config, nil
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}

// isSameOrigin checks if the origin matches the request host.
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // non-browser clients send no Origin header
	}

	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
