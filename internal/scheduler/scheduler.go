// Package scheduler drives repeating backup cycles: discover target
// databases, snapshot each one sequentially, then apply retention. Cycles
// never overlap; a tick that arrives mid-cycle is dropped, not queued.
package scheduler

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/couchvault/couchvault/internal/catalog"
	"github.com/couchvault/couchvault/internal/fs"
	"github.com/couchvault/couchvault/internal/metrics"
	"github.com/couchvault/couchvault/internal/retention"
	"github.com/couchvault/couchvault/internal/store"
)

// Options configure a Scheduler.
type Options struct {
	Interval          time.Duration
	BackupDir         string
	DatabasePattern   string
	VerifyAfterBackup bool
	ApplyRetention    bool
	Retention         retention.Config
}

// BackupResult is the outcome of one database in one cycle. Verified is nil
// when verification did not run.
type BackupResult struct {
	Database   string
	Success    bool
	BackupFile string
	Err        error
	Verified   *bool
}

// Status is a point-in-time view of the scheduler. NextBackupTime is an
// estimate (now + interval), not the timer's stored deadline, and is zero
// unless the scheduler is running.
type Status struct {
	IsRunning        bool
	BackupInProgress bool
	LastBackupTime   time.Time
	NextBackupTime   time.Time
}

// Scheduler owns the repeating timer and the cycle state machine.
type Scheduler struct {
	mu      sync.RWMutex
	opts    Options
	pattern *regexp.Regexp

	discovery store.Discovery
	snaps     store.Snapshotter
	verifier  store.Verifier
	ret       *retention.Engine
	fs        fs.FS
	log       zerolog.Logger

	cron       *cron.Cron
	running    bool
	inProgress atomic.Bool
	lastBackup time.Time
}

// New validates the options and builds a stopped scheduler. An empty
// pattern means every database. A nil filesystem means the real one.
func New(opts Options, discovery store.Discovery, snaps store.Snapshotter, verifier store.Verifier,
	ret *retention.Engine, log zerolog.Logger, filesystem fs.FS) (*Scheduler, error) {

	if opts.Interval <= 0 {
		return nil, fmt.Errorf("invalid backup interval %s", opts.Interval)
	}
	if opts.BackupDir == "" {
		return nil, fmt.Errorf("backup dir is required")
	}
	if opts.DatabasePattern == "" {
		opts.DatabasePattern = "*"
	}
	re, err := compilePattern(opts.DatabasePattern)
	if err != nil {
		return nil, fmt.Errorf("compiling database pattern: %w", err)
	}
	if err := opts.Retention.Validate(); err != nil {
		return nil, err
	}
	if filesystem == nil {
		filesystem = fs.New()
	}

	return &Scheduler{
		opts:      opts,
		pattern:   re,
		discovery: discovery,
		snaps:     snaps,
		verifier:  verifier,
		ret:       ret,
		fs:        filesystem,
		log:       log,
	}, nil
}

// Start ensures the backup directory exists, kicks off one immediate cycle
// and arms the repeating timer. Calling it on a running scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn().Msg("scheduler already running")
		return nil
	}
	if err := s.fs.MkdirAll(s.opts.BackupDir); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("creating backup dir: %w", err)
	}

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.opts.Interval), func() {
		s.RunBackupCycle(ctx)
	}); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("arming backup timer: %w", err)
	}
	s.cron = c
	s.running = true
	interval := s.opts.Interval
	s.mu.Unlock()

	s.log.Info().Dur("interval", interval).Msg("scheduler started")
	go s.RunBackupCycle(ctx)
	c.Start()
	return nil
}

// Stop disarms the timer. An in-flight cycle completes on its own; only
// future cycles are prevented. Safe to call repeatedly.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cron.Stop()
	s.cron = nil
	s.running = false
	s.log.Info().Msg("scheduler stopped")
}

// RunBackupCycle executes one full cycle and is safe to call directly for a
// run-once mode. If a cycle is already in progress it returns immediately
// with no results and without touching the store.
func (s *Scheduler) RunBackupCycle(ctx context.Context) []BackupResult {
	if !s.inProgress.CompareAndSwap(false, true) {
		s.log.Info().Msg("backup cycle already in progress, skipping")
		metrics.CyclesSkipped.Inc()
		return nil
	}
	defer s.inProgress.Store(false)

	s.mu.RLock()
	opts := s.opts
	pattern := s.pattern
	s.mu.RUnlock()

	metrics.CyclesStarted.Inc()
	started := time.Now()

	all, err := s.discovery.ListDatabases(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("database discovery failed, no targets this cycle")
		return nil
	}

	var targets []string
	for _, db := range all {
		if pattern.MatchString(db) {
			targets = append(targets, db)
		}
	}
	if len(targets) == 0 {
		s.log.Warn().Str("pattern", opts.DatabasePattern).Int("known", len(all)).
			Msg("no databases match pattern")
		return nil
	}

	s.log.Info().Int("databases", len(targets)).Msg("backup cycle started")

	results := make([]BackupResult, 0, len(targets))
	for _, db := range targets {
		results = append(results, s.backupOne(ctx, opts, db))
	}

	if opts.ApplyRetention {
		if _, err := s.ret.Apply(ctx, opts.BackupDir); err != nil {
			s.log.Error().Err(err).Msg("retention failed")
		}
	}

	s.mu.Lock()
	s.lastBackup = time.Now()
	s.mu.Unlock()
	metrics.LastCycle.SetToCurrentTime()

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	s.log.Info().Dur("elapsed", time.Since(started)).
		Int("succeeded", len(results)-failed).Int("failed", failed).
		Msg("backup cycle complete")
	return results
}

// backupOne snapshots a single database. Failures are recorded in the
// result, never propagated, so one bad database cannot stop the cycle.
func (s *Scheduler) backupOne(ctx context.Context, opts Options, db string) BackupResult {
	res := BackupResult{Database: db}

	if err := s.snaps.Snapshot(ctx, db); err != nil {
		s.log.Error().Err(err).Str("database", db).Msg("snapshot failed")
		metrics.Snapshots.WithLabelValues("failure").Inc()
		res.Err = fmt.Errorf("snapshot %s: %w", db, err)
		return res
	}
	res.Success = true
	metrics.Snapshots.WithLabelValues("success").Inc()

	files, err := catalog.ScanDatabase(opts.BackupDir, db)
	if err != nil {
		s.log.Error().Err(err).Str("database", db).Msg("catalog re-scan failed")
	} else if len(files) > 0 {
		res.BackupFile = files[0].Path
	}

	if opts.VerifyAfterBackup && res.BackupFile != "" {
		ok, err := s.verifier.Verify(ctx, res.BackupFile)
		if err != nil {
			s.log.Error().Err(err).Str("file", res.BackupFile).Msg("verification errored")
			ok = false
		}
		res.Verified = &ok
		if !ok {
			s.log.Warn().Str("database", db).Str("file", res.BackupFile).
				Msg("snapshot failed verification")
		}
	}

	s.log.Info().Str("database", db).Str("file", res.BackupFile).Msg("database backed up")
	return res
}

// Status reports the current scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		IsRunning:        s.running,
		BackupInProgress: s.inProgress.Load(),
		LastBackupTime:   s.lastBackup,
	}
	if s.running {
		st.NextBackupTime = time.Now().Add(s.opts.Interval)
	}
	return st
}

// UpdateConfig hot-reloads the reloadable settings: pattern, toggles and
// retention windows. Interval changes require a restart; the armed timer
// keeps its original schedule.
func (s *Scheduler) UpdateConfig(opts Options) error {
	if opts.DatabasePattern == "" {
		opts.DatabasePattern = "*"
	}
	re, err := compilePattern(opts.DatabasePattern)
	if err != nil {
		return fmt.Errorf("compiling database pattern: %w", err)
	}
	if err := opts.Retention.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.running && opts.Interval != s.opts.Interval {
		s.log.Warn().Dur("current", s.opts.Interval).Dur("requested", opts.Interval).
			Msg("interval change requires restart, keeping current interval")
		opts.Interval = s.opts.Interval
	}
	s.opts = opts
	s.pattern = re
	s.mu.Unlock()

	s.ret.UpdateConfig(opts.Retention)
	return nil
}
