package metrics

// InitializeMetrics pre-populates expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	phases := []string{"discovery", "metadata", "classification", "hashing", "analysis"}
	for _, p := range phases {
		ScanPhaseDuration.WithLabelValues(p)
		ScanErrorsTotal.WithLabelValues(p)
		ScanFilesProcessed.WithLabelValues(p, "success")
		ScanFilesProcessed.WithLabelValues(p, "error")
		ScanFilesProcessed.WithLabelValues(p, "skipped")
	}

	for _, kind := range []string{"added", "modified", "removed", "restored"} {
		DiscoveryDeltas.WithLabelValues(kind)
	}

	for _, decoder := range []string{"imaging", "stdlib", "vips"} {
		ThumbnailGenerationsTotal.WithLabelValues(decoder, "success")
		ThumbnailGenerationsTotal.WithLabelValues(decoder, "error")
	}

	for _, status := range []string{"active", "missing"} {
		LibraryImagesTotal.WithLabelValues(status)
	}

	for _, status := range []string{"success", "failure"} {
		AuthAttemptsTotal.WithLabelValues(status)
	}
}
