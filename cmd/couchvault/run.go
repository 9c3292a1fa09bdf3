package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchvault/couchvault/internal/config"
	"github.com/couchvault/couchvault/internal/logging"
	"github.com/couchvault/couchvault/internal/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run the backup scheduler until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		log := logging.New(cfg.Logging.Level, cfg.Logging.Format)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sched, err := buildScheduler(cfg, log)
		if err != nil {
			return err
		}

		if cfg.Metrics.Enabled {
			go func() {
				log.Info().Str("listen", cfg.Metrics.Listen).Msg("metrics listener started")
				if err := metrics.Serve(cfg.Metrics.Listen); err != nil {
					log.Error().Err(err).Msg("metrics listener failed")
				}
			}()
		}

		if err := sched.Start(ctx); err != nil {
			return err
		}

		stopCh := make(chan os.Signal, 1)
		signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

		// Hot reload on SIGHUP
		hupCh := make(chan os.Signal, 1)
		signal.Notify(hupCh, syscall.SIGHUP)

		for {
			select {
			case <-hupCh:
				newCfg, err := config.Load(configPath)
				if err != nil {
					log.Error().Err(err).Msg("config reload failed")
					continue
				}
				if err := sched.UpdateConfig(schedulerOptions(newCfg)); err != nil {
					log.Error().Err(err).Msg("config reload rejected")
					continue
				}
				log.Info().Msg("config reloaded")
			case <-stopCh:
				log.Info().Msg("shutting down")
				sched.Stop()
				cancel()
				return nil
			}
		}
	},
}
