package config

import (
	"fmt"
	"time"

	"github.com/couchvault/couchvault/internal/retention"
)

type Config struct {
	CouchDB   CouchDBConfig    `yaml:"couchdb"`
	Backup    BackupConfig     `yaml:"backup"`
	Retention retention.Config `yaml:"retention"`
	Logging   LoggingConfig    `yaml:"logging"`
	Metrics   MetricsConfig    `yaml:"metrics"`
}

type CouchDBConfig struct {
	URL      string        `yaml:"url"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"` // per-request snapshot timeout, e.g. 5m
}

type BackupConfig struct {
	Dir               string        `yaml:"dir"`
	Interval          time.Duration `yaml:"interval"`        // e.g. 24h
	DatabasePattern   string        `yaml:"databasePattern"` // glob, '*' and '?'
	VerifyAfterBackup bool          `yaml:"verifyAfterBackup"`
	ApplyRetention    bool          `yaml:"applyRetention"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // "info", "debug", etc.
	Format string `yaml:"format"` // "json", "console"
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"` // e.g. ":9090"
}

func (c *Config) applyDefaults() {
	if c.Backup.Interval == 0 {
		c.Backup.Interval = 24 * time.Hour
	}
	if c.Backup.DatabasePattern == "" {
		c.Backup.DatabasePattern = "*"
	}
	if c.CouchDB.Timeout == 0 {
		c.CouchDB.Timeout = 5 * time.Minute
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9090"
	}
}

// Validate fails fast on misconfiguration, before any cycle starts.
func (c *Config) Validate() error {
	if c.CouchDB.URL == "" {
		return fmt.Errorf("couchdb.url is required")
	}
	if c.Backup.Dir == "" {
		return fmt.Errorf("backup.dir is required")
	}
	if c.Backup.Interval <= 0 {
		return fmt.Errorf("backup.interval must be positive, got %s", c.Backup.Interval)
	}
	if err := c.Retention.Validate(); err != nil {
		return err
	}
	return nil
}
