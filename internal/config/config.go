package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDataPath     = "~/.local/share/graphvault/data"
	DefaultRecordFormat = "json"
	DefaultLogLevel     = "warn"
	DefaultLogFormat    = "text"
)

// Config holds the settings shared by the CLI and the MCP server
type Config struct {
	DataPath     string `yaml:"data_path"`
	RecordFormat string `yaml:"record_format"`
	CacheSize    int    `yaml:"cache_size"`
	LoadWorkers  int    `yaml:"load_workers"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		DataPath:     DefaultDataPath,
		RecordFormat: DefaultRecordFormat,
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
	}
}

// DataPath returns the data root from the GRAPHVAULT_DATA env var, then
// DATA_FOLDER_PATH, falling back to DefaultDataPath.
func DataPath() string {
	if env := os.Getenv("GRAPHVAULT_DATA"); env != "" {
		return env
	}
	if env := os.Getenv("DATA_FOLDER_PATH"); env != "" {
		return env
	}
	return DefaultDataPath
}

// FilePath returns the config file from the GRAPHVAULT_CONFIG env var,
// falling back to $XDG_CONFIG_HOME/graphvault/config.yaml.
func FilePath() string {
	if env := os.Getenv("GRAPHVAULT_CONFIG"); env != "" {
		return env
	}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "graphvault", "config.yaml")
}

// Load reads the config file at path over the defaults, then applies the
// data path environment variables. A missing file is not an error; an
// empty path uses FilePath.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = FilePath()
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("invalid config %s: %w", path, err)
		}
	}

	if os.Getenv("GRAPHVAULT_DATA") != "" || os.Getenv("DATA_FOLDER_PATH") != "" || cfg.DataPath == "" {
		cfg.DataPath = DataPath()
	}
	if cfg.CacheSize < 0 {
		return cfg, fmt.Errorf("invalid config %s: cache_size must not be negative", path)
	}
	return cfg, nil
}
