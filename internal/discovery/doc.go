// Package discovery walks configured scan roots and reconciles what it
// finds on disk against the persisted inventory.
//
// A walk never deletes rows. New files are inserted, files seen again
// are refreshed (and their hash cleared when content may have changed),
// and files that have disappeared are marked missing so a later walk
// can detect their return. Unreadable individual files are skipped and
// counted; only an unreachable root aborts the walk.
package discovery
