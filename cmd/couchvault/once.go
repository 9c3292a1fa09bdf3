package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchvault/couchvault/internal/config"
	"github.com/couchvault/couchvault/internal/logging"
)

var onceDryRun bool

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "run a single backup cycle and exit",
	Long: "Runs one backup cycle (discovery, per-database snapshot, retention) and exits. " +
		"The exit status is non-zero if any database failed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if onceDryRun {
			cfg.Retention.DryRun = true
		}
		log := logging.New(cfg.Logging.Level, cfg.Logging.Format)

		if err := os.MkdirAll(cfg.Backup.Dir, 0o755); err != nil {
			return fmt.Errorf("creating backup dir: %w", err)
		}

		sched, err := buildScheduler(cfg, log)
		if err != nil {
			return err
		}

		results := sched.RunBackupCycle(cmd.Context())

		failed := 0
		for _, r := range results {
			if !r.Success {
				failed++
			}
		}
		log.Info().Int("databases", len(results)).Int("failed", failed).Msg("cycle finished")
		if failed > 0 {
			return fmt.Errorf("%d of %d databases failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	onceCmd.Flags().BoolVar(&onceDryRun, "dry-run", false, "simulate retention without deleting anything")
}
