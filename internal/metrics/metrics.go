// Package metrics registers the service's prometheus collectors
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DownloadsTotal counts downloads that reached the audit step
	DownloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deptdocs_downloads_total",
		Help: "Total document downloads served",
	})

	// AuditFailuresTotal counts downloads whose audit write failed
	AuditFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deptdocs_audit_failures_total",
		Help: "Downloads served without an audit record",
	})

	// SearchCacheHits and SearchCacheMisses count search cache lookups
	SearchCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deptdocs_search_cache_hits_total",
		Help: "Search results served from cache",
	})
	SearchCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deptdocs_search_cache_misses_total",
		Help: "Search results computed because the cache had no entry",
	})

	// BulkMoveItems counts bulk move items by result (success, failure)
	BulkMoveItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deptdocs_bulk_move_items_total",
		Help: "Documents processed by bulk moves, by result",
	}, []string{"result"})

	// StorageErrors counts physical storage failures by operation
	StorageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deptdocs_storage_errors_total",
		Help: "Physical storage failures by operation",
	}, []string{"op"})

	// RemindersTotal counts reminder runs by result (sent, failed, skipped)
	RemindersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deptdocs_reminder_runs_total",
		Help: "Reminder scheduler runs by result",
	}, []string{"result"})
)

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
