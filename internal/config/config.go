// Package config holds the application-level configuration for the CLI:
// logging, mock host serving defaults and workflow run defaults. Component
// configuration lives in the workflow definitions, not here.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
	Run     RunConfig     `yaml:"run"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Debug lowers the level to debug.
	Debug bool `yaml:"debug"`
	// Dir, when set, writes logs to a file under the directory instead of
	// stderr.
	Dir string `yaml:"dir"`
}

// ServerConfig configures the mock host listener.
type ServerConfig struct {
	Addr                  string `yaml:"addr"`
	Port                  int    `yaml:"port"`
	ScreensDir            string `yaml:"screens_dir"`
	NavigationPath        string `yaml:"navigation_path"`
	DataPath              string `yaml:"data_path"`
	SessionTimeoutSeconds int    `yaml:"session_timeout_seconds"`
}

// RunConfig holds workflow run defaults.
type RunConfig struct {
	// ParamsFile names a YAML or JSON file of initial parameters merged
	// beneath --param flags.
	ParamsFile string `yaml:"params_file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:                  "127.0.0.1",
			Port:                  5250,
			ScreensDir:            "testdata/screens",
			NavigationPath:        "testdata/navigation.json",
			DataPath:              "testdata/loans.json",
			SessionTimeoutSeconds: 300,
		},
	}
}

// Load reads configuration from a YAML file, falling back to defaults when
// the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("GREENSCREEN_LOG_DIR"); dir != "" {
		c.Logging.Dir = dir
	}
	if os.Getenv("GREENSCREEN_DEBUG") == "1" {
		c.Logging.Debug = true
	}
	if addr := os.Getenv("GREENSCREEN_SERVER_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if dir := os.Getenv("GREENSCREEN_SCREENS_DIR"); dir != "" {
		c.Server.ScreensDir = dir
	}
}
