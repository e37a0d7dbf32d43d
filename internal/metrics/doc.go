// Package metrics defines the Prometheus collectors exported by
// photovault and a background collector that refreshes library-level
// gauges from the database.
//
// All metrics carry the photovault_ prefix. Counters and histograms are
// registered with promauto at package init; the HTTP endpoint is served
// by the metrics listener configured in startup.
package metrics
