// Package config handles loading and managing mailstash configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the mailstash configuration.
type Config struct {
	Data     DataConfig        `toml:"data"`
	OAuth    OAuthConfig       `toml:"oauth"`
	Sync     SyncConfig        `toml:"sync"`
	Server   ServerConfig      `toml:"server"`
	Accounts []AccountSchedule `toml:"accounts"`

	// Computed paths (not from config file)
	HomeDir string `toml:"-"`
}

// DataConfig holds storage locations.
type DataConfig struct {
	CacheDir     string `toml:"cache_dir"`     // flat message cache root
	DatabasePath string `toml:"database_path"` // SQLite archive path
}

// OAuthConfig holds the Gmail OAuth client credential and refresh token.
type OAuthConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RefreshToken string `toml:"refresh_token"`
}

// SyncConfig holds sync-related configuration.
type SyncConfig struct {
	RateLimitQPS float64 `toml:"rate_limit_qps"`
	DefaultQuery string  `toml:"default_query"`
	MaxResults   int     `toml:"max_results"`
}

// ServerConfig holds HTTP API server configuration.
type ServerConfig struct {
	APIPort int    `toml:"api_port"`
	APIKey  string `toml:"api_key"`
}

// AccountSchedule defines scheduled sync for one query.
type AccountSchedule struct {
	Email    string `toml:"email"`    // account identifier, used in logs and status
	Query    string `toml:"query"`    // remote query to sync on schedule
	Schedule string `toml:"schedule"` // cron expression (e.g. "0 2 * * *")
	Enabled  bool   `toml:"enabled"`
}

// DefaultHome returns the default mailstash home directory.
// Respects the MAILSTASH_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("MAILSTASH_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mailstash"
	}
	return filepath.Join(home, ".mailstash")
}

// Load reads the configuration from the specified file. If path is empty,
// the default location (~/.mailstash/config.toml) is used. A missing config
// file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	homeDir := DefaultHome()

	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := &Config{
		HomeDir: homeDir,
		Data: DataConfig{
			CacheDir:     filepath.Join(homeDir, "emails"),
			DatabasePath: filepath.Join(homeDir, "emails.db"),
		},
		Sync: SyncConfig{
			RateLimitQPS: 5,
		},
		Server: ServerConfig{
			APIPort: 8080,
		},
		Accounts: []AccountSchedule{},
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Data.CacheDir = expandPath(cfg.Data.CacheDir)
	cfg.Data.DatabasePath = expandPath(cfg.Data.DatabasePath)

	return cfg, nil
}

// EnsureHomeDir creates the home directory if it does not exist.
func (c *Config) EnsureHomeDir() error {
	return os.MkdirAll(c.HomeDir, 0755)
}

// ConfigFilePath returns the path of the config file in the home directory.
func (c *Config) ConfigFilePath() string {
	return filepath.Join(c.HomeDir, "config.toml")
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
	}
	return path
}
