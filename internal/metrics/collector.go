package metrics

import (
	"time"

	"photovault/internal/logging"
)

// StatsProvider supplies library-level statistics for gauge refresh.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current library statistics.
type Stats struct {
	ActiveImages  int
	MissingImages int
	TotalBytes    int64
	TotalRoots    int
}

// Collector periodically refreshes library gauges from a StatsProvider.
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop.
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection.
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	LibraryImagesTotal.WithLabelValues("active").Set(float64(stats.ActiveImages))
	LibraryImagesTotal.WithLabelValues("missing").Set(float64(stats.MissingImages))
	LibraryBytesTotal.Set(float64(stats.TotalBytes))
	LibraryRootsTotal.Set(float64(stats.TotalRoots))

	logging.Debug("Metrics collected: active=%d, missing=%d, bytes=%d, roots=%d",
		stats.ActiveImages, stats.MissingImages, stats.TotalBytes, stats.TotalRoots)
}
