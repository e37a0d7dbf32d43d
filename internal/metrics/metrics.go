package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photovault_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photovault_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photovault_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photovault_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photovault_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photovault_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"result"}, // "commit" or "rollback"
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photovault_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Scan pipeline metrics
var (
	ScanRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photovault_scan_runs_total",
			Help: "Total number of scan runs started",
		},
	)

	ScanRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photovault_scan_running",
			Help: "Whether a scan is currently running (1 = running, 0 = idle)",
		},
	)

	ScanPhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photovault_scan_phase_duration_seconds",
			Help:    "Duration of each scan phase in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"phase"},
	)

	ScanFilesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photovault_scan_files_processed_total",
			Help: "Total number of files processed per phase and status",
		},
		[]string{"phase", "status"},
	)

	ScanLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photovault_scan_last_run_timestamp",
			Help: "Unix timestamp of the last completed scan",
		},
	)

	ScanErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photovault_scan_errors_total",
			Help: "Total number of scan errors by phase",
		},
		[]string{"phase"},
	)
)

// Discovery metrics
var (
	DiscoveryDeltas = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photovault_discovery_deltas_total",
			Help: "Total file deltas observed by discovery",
		},
		[]string{"kind"}, // "added", "modified", "removed", "restored"
	)

	DiscoveryWalkDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photovault_discovery_walk_duration_seconds",
			Help:    "Duration of a full discovery walk in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300},
		},
	)
)

// Duplicate detection metrics
var (
	DedupGroupsFound = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photovault_dedup_groups",
			Help: "Number of duplicate groups found by the last grouping pass",
		},
	)

	DedupWastedBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photovault_dedup_wasted_bytes",
			Help: "Reclaimable bytes reported by the last grouping pass",
		},
	)

	DedupFilesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photovault_dedup_files_deleted_total",
			Help: "Total duplicate files deleted by cleanup",
		},
	)

	DedupBytesFreed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photovault_dedup_bytes_freed_total",
			Help: "Total bytes freed by duplicate cleanup",
		},
	)

	DedupDeleteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photovault_dedup_delete_errors_total",
			Help: "Total errors during duplicate cleanup",
		},
	)
)

// Thumbnail cache metrics
var (
	ThumbnailCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photovault_thumbnail_cache_hits_total",
			Help: "Total number of thumbnail cache hits",
		},
	)

	ThumbnailCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photovault_thumbnail_cache_misses_total",
			Help: "Total number of thumbnail cache misses",
		},
	)

	ThumbnailCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photovault_thumbnail_cache_evictions_total",
			Help: "Total number of thumbnail cache evictions",
		},
	)

	ThumbnailCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photovault_thumbnail_cache_size_bytes",
			Help: "Total size of the thumbnail cache in bytes",
		},
	)

	ThumbnailCacheCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photovault_thumbnail_cache_count",
			Help: "Number of thumbnails in the cache",
		},
	)

	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photovault_thumbnail_generations_total",
			Help: "Total number of thumbnail syntheses",
		},
		[]string{"decoder", "status"}, // decoder: "native", "vips", "placeholder"
	)

	ThumbnailGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photovault_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail synthesis duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
)

// Watcher metrics
var (
	WatcherPollsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photovault_watcher_polls_total",
			Help: "Total number of change detection polls",
		},
	)

	WatcherChangesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photovault_watcher_changes_detected_total",
			Help: "Total number of polls that detected changes",
		},
	)

	WatcherPollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photovault_watcher_poll_duration_seconds",
			Help:    "Duration of change detection polls in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
)

// Library metrics
var (
	LibraryImagesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photovault_library_images_total",
			Help: "Total number of inventory rows by lifecycle status",
		},
		[]string{"status"}, // "active", "missing"
	)

	LibraryBytesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photovault_library_bytes_total",
			Help: "Total bytes of active inventory files",
		},
	)

	LibraryRootsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photovault_library_roots_total",
			Help: "Number of configured scan roots",
		},
	)
)

// Authentication metrics
var (
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photovault_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"status"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photovault_active_sessions",
			Help: "Number of active user sessions",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photovault_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric.
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
