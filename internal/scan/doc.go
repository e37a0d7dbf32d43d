// Package scan sequences the ingestion pipeline.
//
// A scan run moves through fixed phases: discovery reconciles disk
// against the inventory, metadata extraction enriches rows that lack
// attributes, classification categorizes unanalyzed images, hashing
// fills in content hashes, and analysis optionally refines heuristic
// classifications through an external capability. Phases run strictly
// in order; within a phase, files are processed concurrently by a
// bounded worker pool.
//
// At most one scan runs per process. Start hands back a session token
// whose Cancel stops the run cooperatively between files; committed
// work is never rolled back, so a restarted scan picks up where the
// cancelled one left off. Consumers poll Progress or Subscribe for
// throttled snapshots.
package scan
