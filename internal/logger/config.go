package logger

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds logging configuration
type Config struct {
	Level          string `yaml:"level"`
	ConsoleEnabled bool   `yaml:"console_enabled"`
	ConsoleFormat  string `yaml:"console_format"`
	FileEnabled    bool   `yaml:"file_enabled"`
	FilePath       string `yaml:"file_path"`
	FileFormat     string `yaml:"file_format"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// LoggingConfig wraps the Config for YAML parsing
type LoggingConfig struct {
	Logging Config `yaml:"logging"`
}

// DefaultConfig logs INFO and above to stderr in text form.
func DefaultConfig() Config {
	return Config{
		Level:          "INFO",
		ConsoleEnabled: true,
		ConsoleFormat:  "text",
		FileEnabled:    false,
		FilePath:       "logs/tictactoe.log",
		FileFormat:     "text",
		FileMaxSizeMB:  10,
		FileMaxBackups: 5,
		FileMaxAgeDays: 30,
	}
}

// LoadConfig loads logging configuration from a YAML file and applies
// environment variable overrides. A missing file is not an error; a file
// that cannot be parsed is, but the defaults are still returned.
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	var loadErr error
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			// Fields absent from the file keep their defaults
			wrapped := LoggingConfig{Logging: config}
			if err := yaml.Unmarshal(data, &wrapped); err != nil {
				loadErr = fmt.Errorf("failed to parse logging config %s: %w", configPath, err)
			} else {
				config = wrapped.Logging
			}
		case !os.IsNotExist(err):
			loadErr = fmt.Errorf("failed to read logging config %s: %w", configPath, err)
		}
	}

	applyEnvOverrides(&config)
	return config, loadErr
}

func applyEnvOverrides(config *Config) {
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.Level = logLevel
	}

	if consoleFormat := os.Getenv("LOG_CONSOLE_FORMAT"); consoleFormat != "" {
		config.ConsoleFormat = consoleFormat
	}

	if fileEnabled := os.Getenv("LOG_FILE_ENABLED"); fileEnabled != "" {
		if enabled, err := strconv.ParseBool(fileEnabled); err == nil {
			config.FileEnabled = enabled
		}
	}

	if filePath := os.Getenv("LOG_FILE_PATH"); filePath != "" {
		config.FilePath = filePath
	}
}
