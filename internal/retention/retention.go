// Package retention classifies snapshot files into daily, weekly and monthly
// tiers per database and deletes everything outside the configured windows.
package retention

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/couchvault/couchvault/internal/catalog"
	"github.com/couchvault/couchvault/internal/fs"
	"github.com/couchvault/couchvault/internal/metrics"
)

// Config holds the policy parameters. All windows are in whole units and
// must be non-negative. DryRun guarantees zero filesystem mutation.
type Config struct {
	DailyDays     int  `yaml:"dailyDays"`
	WeeklyWeeks   int  `yaml:"weeklyWeeks"`
	MonthlyMonths int  `yaml:"monthlyMonths"`
	DryRun        bool `yaml:"dryRun"`
}

func (c Config) Validate() error {
	if c.DailyDays < 0 || c.WeeklyWeeks < 0 || c.MonthlyMonths < 0 {
		return fmt.Errorf("retention windows must be non-negative")
	}
	return nil
}

type Tier string

const (
	TierDaily   Tier = "daily"
	TierWeekly  Tier = "weekly"
	TierMonthly Tier = "monthly"
	TierDelete  Tier = "delete"
)

// KeptFile is a surviving snapshot and the tier that kept it.
type KeptFile struct {
	File catalog.FileInfo
	Tier Tier
}

// DeleteError records a single failed deletion.
type DeleteError struct {
	File catalog.FileInfo
	Err  error
}

// Result aggregates one retention run across all databases. It is always
// complete: deletion failures land in Errors, they never abort the run.
type Result struct {
	Kept       []KeptFile
	Deleted    []catalog.FileInfo
	Errors     []DeleteError
	FreedBytes int64
}

// Engine applies a retention Config to a backup directory.
type Engine struct {
	mu  sync.RWMutex
	cfg Config
	fs  fs.FS
	log zerolog.Logger
	now func() time.Time
}

// New creates an engine. A nil filesystem means the real one.
func New(cfg Config, log zerolog.Logger, filesystem fs.FS) *Engine {
	if filesystem == nil {
		filesystem = fs.New()
	}
	return &Engine{
		cfg: cfg,
		fs:  filesystem,
		log: log,
		now: time.Now,
	}
}

// UpdateConfig hot-reloads the policy parameters.
func (e *Engine) UpdateConfig(cfg Config) {
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
}

// Apply scans dir, classifies every snapshot per database independently and
// deletes the delete tier together with any .log companions. Files whose
// timestamp cannot be parsed are left out of classification and untouched.
func (e *Engine) Apply(ctx context.Context, dir string) (*Result, error) {
	files, err := catalog.Scan(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning catalog: %w", err)
	}

	e.mu.RLock()
	cfg := e.cfg
	e.mu.RUnlock()

	byDB := make(map[string][]datedFile)
	for _, f := range files {
		t, err := catalog.DecodeTimestamp(f.Timestamp)
		if err != nil {
			e.log.Debug().Str("file", f.Path).Str("timestamp", f.Timestamp).
				Msg("unparseable timestamp, file left out of retention")
			continue
		}
		byDB[f.Database] = append(byDB[f.Database], datedFile{
			file:     f,
			date:     t,
			weekKey:  weekKey(t),
			monthKey: monthKey(t),
		})
	}

	databases := make([]string, 0, len(byDB))
	for db := range byDB {
		databases = append(databases, db)
	}
	sort.Strings(databases)

	res := &Result{}
	now := e.now()
	for _, db := range databases {
		p := classify(byDB[db], cfg, now)
		res.Kept = append(res.Kept, p.kept...)

		for _, f := range p.deleted {
			if cfg.DryRun {
				e.log.Info().Str("database", db).Str("file", f.Path).Int64("size", f.Size).
					Msg("dry run: would delete")
				res.Deleted = append(res.Deleted, f)
				res.FreedBytes += f.Size
				continue
			}
			if err := e.deleteSnapshot(f); err != nil {
				e.log.Error().Err(err).Str("file", f.Path).Msg("retention: delete failed")
				res.Errors = append(res.Errors, DeleteError{File: f, Err: err})
				continue
			}
			e.log.Debug().Str("database", db).Str("file", f.Path).Msg("deleted expired snapshot")
			res.Deleted = append(res.Deleted, f)
			res.FreedBytes += f.Size
			metrics.RetentionDeleted.Inc()
			metrics.RetentionBytesFreed.Add(float64(f.Size))
		}
	}

	e.log.Info().
		Int("kept", len(res.Kept)).
		Int("deleted", len(res.Deleted)).
		Int("errors", len(res.Errors)).
		Int64("freedBytes", res.FreedBytes).
		Bool("dryRun", cfg.DryRun).
		Msg("retention applied")
	return res, nil
}

// deleteSnapshot removes a snapshot and its companion log. A missing
// companion is not an error.
func (e *Engine) deleteSnapshot(f catalog.FileInfo) error {
	if err := e.fs.Remove(f.Path); err != nil {
		return fmt.Errorf("removing snapshot: %w", err)
	}
	if err := e.fs.Remove(catalog.LogPath(f.Path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing companion log: %w", err)
	}
	return nil
}
