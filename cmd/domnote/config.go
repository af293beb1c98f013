package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML config file. Every field has an
// environment variable override; env wins over file, file wins over
// defaults.
type fileConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Capacity     int           `yaml:"capacity"`
	Persist      bool          `yaml:"persist"`
	PersistPath  string        `yaml:"persist_path"`
	PersistQuiet time.Duration `yaml:"persist_quiet"`
	PortFile     string        `yaml:"port_file"`
	EventsDB     string        `yaml:"events_db"`
	BrowserURL   string        `yaml:"browser_url"`
	MCPTransport string        `yaml:"mcp_transport"`
	LogLevel     string        `yaml:"log_level"`
}

// loadConfig reads path when non-empty. A missing file is an error only
// when the path was set explicitly.
func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
