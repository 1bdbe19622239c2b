// Package config provides YAML-based static configuration for Foreman.
// Settings the daemon reloads between iterations live in package settings
// instead.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Foreman configuration, loaded from foreman.yaml.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	DataDir   string          `yaml:"data_dir"`
	DocsDir   string          `yaml:"docs_dir"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Notify    NotifyConfig    `yaml:"notify"`
	Agent     AgentConfig     `yaml:"agent"`
}

// DatabaseConfig selects the storage engine.
type DatabaseConfig struct {
	Engine   string `yaml:"engine"` // sqlite (default) or mysql
	Path     string `yaml:"path"`   // sqlite file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Database string `yaml:"database"`
}

// DashboardConfig holds the HTTP dashboard settings.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// NotifyConfig holds operator notification settings. Empty tokens disable the
// corresponding adapter.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig configures the Slack notification adapter.
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordConfig configures the Discord notification adapter.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// AgentConfig configures the execution agent binary.
type AgentConfig struct {
	Binary string `yaml:"binary"` // default "claude"
}

// Load reads a YAML config file from path and returns a validated Config.
// A missing file yields the defaults, so a fresh checkout works untouched.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := &Config{}
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.DocsDir == "" {
		c.DocsDir = c.DataDir + "/docs"
	}
	if c.Database.Engine == "" {
		c.Database.Engine = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = c.DataDir + "/foreman.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Database == "" {
		c.Database.Database = "foreman"
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
	if c.Agent.Binary == "" {
		c.Agent.Binary = "claude"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Engine {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.engine %q must be sqlite or mysql", c.Database.Engine))
	}
	if c.Database.Engine == "mysql" && c.Database.Database == "" {
		errs = append(errs, "database.database is required for mysql")
	}
	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		errs = append(errs, fmt.Sprintf("dashboard.port %d out of range", c.Dashboard.Port))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SettingsPath returns the location of the dynamic settings file.
func (c *Config) SettingsPath() string {
	return c.DataDir + "/settings.json"
}

// PIDPath returns the location of the daemon PID marker.
func (c *Config) PIDPath() string {
	return c.DataDir + "/foreman.pid"
}
