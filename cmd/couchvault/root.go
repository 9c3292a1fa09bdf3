package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/couchvault/couchvault/internal/config"
	"github.com/couchvault/couchvault/internal/retention"
	"github.com/couchvault/couchvault/internal/scheduler"
	"github.com/couchvault/couchvault/internal/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "couchvault",
	Short:         "tiered snapshot backups for CouchDB-style document stores",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(onceCmd)
}

func schedulerOptions(cfg *config.Config) scheduler.Options {
	return scheduler.Options{
		Interval:          cfg.Backup.Interval,
		BackupDir:         cfg.Backup.Dir,
		DatabasePattern:   cfg.Backup.DatabasePattern,
		VerifyAfterBackup: cfg.Backup.VerifyAfterBackup,
		ApplyRetention:    cfg.Backup.ApplyRetention,
		Retention:         cfg.Retention,
	}
}

// buildScheduler wires the CouchDB client, retention engine and scheduler
// from one loaded config.
func buildScheduler(cfg *config.Config, log zerolog.Logger) (*scheduler.Scheduler, error) {
	couch, err := store.NewCouch(store.CouchOptions{
		URL:       cfg.CouchDB.URL,
		Username:  cfg.CouchDB.Username,
		Password:  cfg.CouchDB.Password,
		Timeout:   cfg.CouchDB.Timeout,
		BackupDir: cfg.Backup.Dir,
	}, log)
	if err != nil {
		return nil, err
	}

	ret := retention.New(cfg.Retention, log, nil)

	return scheduler.New(schedulerOptions(cfg), couch, couch, couch, ret, log, nil)
}
