// Package workers determines worker pool sizes that respect container
// CPU limits.
//
// Go 1.19+ sets GOMAXPROCS from cgroup CPU limits, while
// runtime.NumCPU() still reports the host's core count. The helpers
// here size pools from GOMAXPROCS with a task-type multiplier, bounded
// by a package-wide cap:
//
//	workers.ForCPU()   // CPU-bound (hashing, resizing)
//	workers.ForIO()    // I/O-bound (directory walking)
//	workers.ForMixed() // mixed (metadata extraction)
//
// The SCAN_WORKERS environment variable overrides the computed count.
package workers
