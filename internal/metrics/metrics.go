// Package metrics exposes couchvault's prometheus instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "couchvault_backup_cycles_total",
		Help: "Backup cycles started.",
	})

	CyclesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "couchvault_backup_cycles_skipped_total",
		Help: "Cycle requests dropped because a cycle was already in progress.",
	})

	Snapshots = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "couchvault_snapshots_total",
		Help: "Per-database snapshot outcomes.",
	}, []string{"status"})

	RetentionDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "couchvault_retention_files_deleted_total",
		Help: "Snapshot files removed by retention.",
	})

	RetentionBytesFreed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "couchvault_retention_bytes_freed_total",
		Help: "Bytes reclaimed by retention.",
	})

	LastCycle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "couchvault_last_cycle_timestamp_seconds",
		Help: "Unix time of the last completed backup cycle.",
	})
)

// Serve exposes /metrics on addr. It blocks; run it in a goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
