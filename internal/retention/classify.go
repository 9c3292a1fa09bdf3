package retention

import (
	"fmt"
	"sort"
	"time"

	"github.com/couchvault/couchvault/internal/catalog"
)

// datedFile is a catalog entry with its parsed date and bucket keys.
type datedFile struct {
	file     catalog.FileInfo
	date     time.Time
	weekKey  string
	monthKey string
}

type plan struct {
	kept    []KeptFile
	deleted []catalog.FileInfo
}

// classify walks one database's snapshots newest first. A daily-window file
// is always kept and marks its week and month as covered, so the weekly and
// monthly tiers never duplicate coverage. Within a weekly or monthly bucket
// the newest file wins the single retained slot; the newest-first walk order
// is what enforces that, so it must not change.
func classify(files []datedFile, cfg Config, now time.Time) plan {
	dailyCutoff := now.Add(-time.Duration(cfg.DailyDays) * 24 * time.Hour)
	weeklyCutoff := now.Add(-time.Duration(cfg.WeeklyWeeks) * 7 * 24 * time.Hour)
	// A month is a fixed 30 days here, not a calendar month. The drift over
	// long horizons is accepted; existing archives depend on it.
	monthlyCutoff := now.Add(-time.Duration(cfg.MonthlyMonths) * 30 * 24 * time.Hour)

	sort.Slice(files, func(i, j int) bool {
		return files[i].date.After(files[j].date)
	})

	keptWeeks := make(map[string]bool)
	keptMonths := make(map[string]bool)

	var p plan
	for _, f := range files {
		switch {
		case !f.date.Before(dailyCutoff):
			p.kept = append(p.kept, KeptFile{File: f.file, Tier: TierDaily})
			keptWeeks[f.weekKey] = true
			keptMonths[f.monthKey] = true

		case !f.date.Before(weeklyCutoff):
			if keptWeeks[f.weekKey] {
				p.deleted = append(p.deleted, f.file)
				continue
			}
			keptWeeks[f.weekKey] = true
			p.kept = append(p.kept, KeptFile{File: f.file, Tier: TierWeekly})

		case !f.date.Before(monthlyCutoff):
			if keptMonths[f.monthKey] {
				p.deleted = append(p.deleted, f.file)
				continue
			}
			keptMonths[f.monthKey] = true
			p.kept = append(p.kept, KeptFile{File: f.file, Tier: TierMonthly})

		default:
			p.deleted = append(p.deleted, f.file)
		}
	}
	return p
}

// weekKey returns YYYY-Www using ISO-8601 week numbering.
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// monthKey returns YYYY-MM.
func monthKey(t time.Time) string {
	return t.Format("2006-01")
}
