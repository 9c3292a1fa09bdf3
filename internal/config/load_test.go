package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
couchdb:
  url: http://localhost:5984
  username: admin
  password: secret
  timeout: 2m
backup:
  dir: /var/backups/couchvault
  interval: 6h
  databasePattern: "eddo_*"
  verifyAfterBackup: true
  applyRetention: true
retention:
  dailyDays: 30
  weeklyWeeks: 12
  monthlyMonths: 12
logging:
  level: debug
  format: console
metrics:
  enabled: true
  listen: ":9091"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5984", cfg.CouchDB.URL)
	assert.Equal(t, 2*time.Minute, cfg.CouchDB.Timeout)
	assert.Equal(t, 6*time.Hour, cfg.Backup.Interval)
	assert.Equal(t, "eddo_*", cfg.Backup.DatabasePattern)
	assert.True(t, cfg.Backup.VerifyAfterBackup)
	assert.True(t, cfg.Backup.ApplyRetention)
	assert.Equal(t, 30, cfg.Retention.DailyDays)
	assert.Equal(t, 12, cfg.Retention.WeeklyWeeks)
	assert.Equal(t, 12, cfg.Retention.MonthlyMonths)
	assert.False(t, cfg.Retention.DryRun)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ":9091", cfg.Metrics.Listen)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("COUCH_PASSWORD", "hunter2")
	path := writeConfig(t, `
couchdb:
  url: http://localhost:5984
  password: $(COUCH_PASSWORD)
backup:
  dir: /var/backups
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.CouchDB.Password)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
couchdb:
  url: http://localhost:5984
backup:
  dir: /var/backups
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.Backup.Interval)
	assert.Equal(t, "*", cfg.Backup.DatabasePattern)
	assert.Equal(t, 5*time.Minute, cfg.CouchDB.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFailsFast(t *testing.T) {
	cases := map[string]string{
		"missing url": `
backup:
  dir: /var/backups
`,
		"missing dir": `
couchdb:
  url: http://localhost:5984
`,
		"negative interval": `
couchdb:
  url: http://localhost:5984
backup:
  dir: /var/backups
  interval: -5m
`,
		"negative window": `
couchdb:
  url: http://localhost:5984
backup:
  dir: /var/backups
retention:
  dailyDays: -1
`,
		"unparseable interval": `
couchdb:
  url: http://localhost:5984
backup:
  dir: /var/backups
  interval: soon
`,
	}
	for name, content := range cases {
		_, err := Load(writeConfig(t, content))
		assert.Error(t, err, name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
